package executor

import "strings"

// Step pairs an operation with a copy of the state right after it.
type Step struct {
	Operation MemoryOperation
	State     ExecutionState
}

// Trace walks source line by line against state and returns every operation
// it recognises, in order. Lines that match no rule, or match a rule but not
// its expected shape, are skipped without error.
func Trace(source string, state *ExecutionState) []Step {
	steps := []Step{}
	for i, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		rule, ok := ruleFor(line)
		if !ok {
			continue
		}
		op, ok := rule.handle(state, line, i+1)
		if !ok {
			continue
		}
		steps = append(steps, Step{Operation: op, State: *state})
	}
	return steps
}

func ParseAndExecute(source string, state *ExecutionState) []MemoryOperation {
	steps := Trace(source, state)
	ops := make([]MemoryOperation, len(steps))
	for i, s := range steps {
		ops[i] = s.Operation
	}
	return ops
}
