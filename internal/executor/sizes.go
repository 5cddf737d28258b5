package executor

var structSizes = map[string]int{
	"Student": 24,
	"int":     4,
	"char":    1,
	"double":  8,
}

// StructSizeOf returns the simulated size of a named type. Unknown names get
// the default struct size.
func StructSizeOf(typeName string) int {
	if size, ok := structSizes[typeName]; ok {
		return size
	}
	return DefaultStructSize
}
