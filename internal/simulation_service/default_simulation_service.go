package simulation_service

import (
	"github.com/AnishMulay/memscope/internal/executor"
	"github.com/AnishMulay/memscope/internal/log_service"
	"github.com/google/uuid"
)

type DefaultSimulationService struct {
	fileSize int
	ls       log_service.LogService
}

func NewDefaultSimulationService(fileSize int, ls log_service.LogService) *DefaultSimulationService {
	if fileSize <= 0 {
		fileSize = executor.DefaultFileSize
	}
	return &DefaultSimulationService{
		fileSize: fileSize,
		ls:       ls,
	}
}

func (s *DefaultSimulationService) Reset() executor.MemorySnapshot {
	return executor.Snapshot(*executor.NewExecutionState(s.fileSize))
}

// Run executes source against a fresh ExecutionState. Every call owns its
// state, so Run is safe for concurrent use.
func (s *DefaultSimulationService) Run(source string) Trace {
	state := executor.NewExecutionState(s.fileSize)
	runID := uuid.New().String()

	s.ls.Debug(log_service.LogEvent{
		Message:  "Starting simulation run",
		Metadata: map[string]any{"runID": runID, "chars": len(source)},
	})

	trace := Trace{
		RunID:   runID,
		Initial: executor.Snapshot(*state),
		Steps:   []Step{},
	}
	for i, st := range executor.Trace(source, state) {
		trace.Steps = append(trace.Steps, Step{
			Index:     i,
			Operation: st.Operation,
			Snapshot:  executor.Snapshot(st.State),
		})
	}

	s.ls.Info(log_service.LogEvent{
		Message: "Simulation run finished",
		Metadata: map[string]any{
			"runID":       runID,
			"steps":       trace.TotalSteps(),
			"filePointer": state.FilePointer,
			"structType":  state.StructType,
		},
	})
	return trace
}

var _ SimulationService = (*DefaultSimulationService)(nil)
