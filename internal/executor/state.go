package executor

const (
	DefaultFileSize   = 1024
	DefaultStructSize = 24
	DefaultStructType = "Student"
)

// ExecutionState is the simulation context of a single run. The extractor
// mutates it in place, so concurrent runs must each own one.
type ExecutionState struct {
	FilePointer int
	FileSize    int
	StructSize  int
	StructType  string
}

func NewExecutionState(fileSize int) *ExecutionState {
	if fileSize <= 0 {
		fileSize = DefaultFileSize
	}
	return &ExecutionState{
		FileSize:   fileSize,
		StructSize: DefaultStructSize,
		StructType: DefaultStructType,
	}
}

// Position splits the file pointer into a struct index and an intra-struct offset.
func (s *ExecutionState) Position() (structIndex, byteOffset int) {
	size := s.StructSize
	if size <= 0 {
		size = DefaultStructSize
	}
	return s.FilePointer / size, s.FilePointer % size
}
