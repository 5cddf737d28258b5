package executor

type OperationKind string

const (
	OpSeek  OperationKind = "fseek"
	OpRead  OperationKind = "fread"
	OpWrite OperationKind = "fwrite"
)

type MemoryOperation struct {
	Kind        OperationKind  `json:"type"`
	Description string         `json:"description"`
	Line        int            `json:"line"`
	FilePointer int            `json:"filePointer"`
	ByteOffset  int            `json:"byteOffset"`
	StructIndex int            `json:"structIndex"`
	Detail      map[string]any `json:"data"`
}
