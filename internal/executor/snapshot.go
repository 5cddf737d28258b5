package executor

import (
	"fmt"
	"strconv"
)

const minSnapshotRows = 5

type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type StructRow struct {
	Index  int     `json:"index"`
	Offset int     `json:"offset"`
	Fields []Field `json:"fields"`
}

// MemorySnapshot is the renderable view of an ExecutionState. The rows are
// illustrative and depend only on their index.
type MemorySnapshot struct {
	FilePointer int               `json:"filePointer"`
	FileSize    int               `json:"fileSize"`
	StructSize  int               `json:"structSize"`
	StructType  string            `json:"structType"`
	Data        []StructRow       `json:"data"`
	Variables   map[string]string `json:"variables"`
}

func Snapshot(state ExecutionState) MemorySnapshot {
	size := state.StructSize
	if size <= 0 {
		size = DefaultStructSize
	}
	rows := max(minSnapshotRows, state.FileSize/size)

	data := make([]StructRow, rows)
	for i := range data {
		data[i] = StructRow{
			Index:  i,
			Offset: i * size,
			Fields: []Field{
				{Name: "id", Type: "int", Value: strconv.Itoa(1000 + i)},
				{Name: "name", Type: "char[20]", Value: fmt.Sprintf("Student_%d", i+1)},
				{Name: "grade", Type: "float", Value: fmt.Sprintf("%.2f", 3.5+float64(i)*0.1)},
			},
		}
	}

	return MemorySnapshot{
		FilePointer: state.FilePointer,
		FileSize:    state.FileSize,
		StructSize:  size,
		StructType:  state.StructType,
		Data:        data,
		Variables:   map[string]string{},
	}
}
