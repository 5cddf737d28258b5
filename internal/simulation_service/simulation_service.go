package simulation_service

import "github.com/AnishMulay/memscope/internal/executor"

type Step struct {
	Index     int                      `json:"step"`
	Operation executor.MemoryOperation `json:"operation"`
	Snapshot  executor.MemorySnapshot  `json:"memoryState"`
}

// Trace is the full result of one run: the snapshot before any line is
// applied followed by every operation with the snapshot right after it.
type Trace struct {
	RunID   string                  `json:"runId"`
	Initial executor.MemorySnapshot `json:"initial"`
	Steps   []Step                  `json:"steps"`
}

func (t Trace) TotalSteps() int {
	return len(t.Steps)
}

type SimulationService interface {
	Reset() executor.MemorySnapshot
	Run(source string) Trace
}
