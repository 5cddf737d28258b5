package executor

import (
	"fmt"
	"regexp"
	"strings"
)

type LineKind int

const (
	LineIgnored LineKind = iota
	LineSeek
	LineReadWrite
	LineStructDef
	LineAssignment
)

func (k LineKind) String() string {
	switch k {
	case LineSeek:
		return "seek"
	case LineReadWrite:
		return "read_write"
	case LineStructDef:
		return "struct_def"
	case LineAssignment:
		return "assignment"
	default:
		return "ignored"
	}
}

// lineHandler applies one recognised line to the state and reports the
// resulting operation, if the line produces one.
type lineHandler func(state *ExecutionState, line string, lineNum int) (MemoryOperation, bool)

type lineRule struct {
	kind    LineKind
	matches func(line string) bool
	handle  lineHandler
}

// lineRules is evaluated in order and the first matching rule owns the line.
var lineRules = []lineRule{
	{
		kind:    LineSeek,
		matches: func(line string) bool { return strings.Contains(line, "fseek") },
		handle:  handleSeek,
	},
	{
		kind: LineReadWrite,
		matches: func(line string) bool {
			return strings.Contains(line, "fread") || strings.Contains(line, "fwrite")
		},
		handle: handleReadWrite,
	},
	{
		kind:    LineStructDef,
		matches: func(line string) bool { return strings.Contains(line, "typedef struct") },
		handle:  handleStructDef,
	},
	{
		kind: LineAssignment,
		matches: func(line string) bool {
			return strings.Contains(line, "=") && !strings.HasPrefix(line, "if")
		},
		handle: handleAssignment,
	},
}

// Classify reports which rule owns an already trimmed line.
func Classify(line string) LineKind {
	if r, ok := ruleFor(line); ok {
		return r.kind
	}
	return LineIgnored
}

func ruleFor(line string) (lineRule, bool) {
	for _, r := range lineRules {
		if r.matches(line) {
			return r, true
		}
	}
	return lineRule{}, false
}

var (
	seekPattern      = regexp.MustCompile(`fseek\(\s*(\w+)\s*,\s*([^,]+)\s*,\s*(\w+)\s*\)`)
	structDefPattern = regexp.MustCompile(`typedef\s+struct\s*\{[^}]*\}\s*(\w+)`)
)

const (
	whenceSet = "SEEK_SET"
	whenceCur = "SEEK_CUR"
	whenceEnd = "SEEK_END"
)

func handleSeek(state *ExecutionState, line string, lineNum int) (MemoryOperation, bool) {
	m := seekPattern.FindStringSubmatch(line)
	if m == nil {
		return MemoryOperation{}, false
	}
	fileVar, offsetExpr, whence := m[1], m[2], m[3]

	offset := state.EvaluateOffset(offsetExpr)
	from := state.FilePointer

	to := from
	switch whence {
	case whenceSet:
		to = offset
	case whenceCur:
		to = from + offset
	case whenceEnd:
		to = state.FileSize + offset
	}
	// fseek to a negative position fails and leaves the stream where it was.
	if to >= 0 {
		state.FilePointer = to
	}

	idx, off := state.Position()
	return MemoryOperation{
		Kind: OpSeek,
		Description: fmt.Sprintf("Line %d: fseek(%s, %d, %s) → Position %d bytes (Struct %d)",
			lineNum, fileVar, offset, whence, state.FilePointer, idx+1),
		Line:        lineNum,
		FilePointer: state.FilePointer,
		ByteOffset:  off,
		StructIndex: idx,
		Detail: map[string]any{
			"from":   from,
			"to":     state.FilePointer,
			"whence": whence,
		},
	}, true
}

func handleReadWrite(state *ExecutionState, line string, lineNum int) (MemoryOperation, bool) {
	kind, verb, direction := OpWrite, "write", "Wrote to"
	if strings.Contains(line, "fread") {
		kind, verb, direction = OpRead, "read", "Read from"
	}

	idx, off := state.Position()
	return MemoryOperation{
		Kind:        kind,
		Description: fmt.Sprintf("Line %d: %s() → %s position %d", lineNum, kind, direction, state.FilePointer),
		Line:        lineNum,
		FilePointer: state.FilePointer,
		ByteOffset:  off,
		StructIndex: idx,
		Detail:      map[string]any{"operation": verb},
	}, true
}

func handleStructDef(state *ExecutionState, line string, _ int) (MemoryOperation, bool) {
	if m := structDefPattern.FindStringSubmatch(line); m != nil {
		state.StructType = m[1]
	}
	return MemoryOperation{}, false
}

func handleAssignment(state *ExecutionState, line string, _ int) (MemoryOperation, bool) {
	if !strings.Contains(line, "sizeof") {
		return MemoryOperation{}, false
	}
	if m := sizeofPattern.FindStringSubmatch(line); m != nil {
		state.StructSize = StructSizeOf(m[1])
	}
	return MemoryOperation{}, false
}
