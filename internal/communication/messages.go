package communication

import (
	"encoding/json"
	"strings"

	"github.com/AnishMulay/memscope/internal/executor"
	"github.com/AnishMulay/memscope/internal/simulation_service"
)

// Viewer actions
const (
	ActionExecute = "execute"
	ActionReset   = "reset"
	ActionStep    = "step"
)

// Lifecycle messages raised by the communicators themselves
const (
	MessageTypeViewerConnect    = "viewer:connect"
	MessageTypeViewerDisconnect = "viewer:disconnect"
)

// Events sent back to viewers
const (
	EventMemoryUpdate      = "memory:update"
	EventExecutionStep     = "execution:step"
	EventExecutionComplete = "execution:complete"
	EventExecutionError    = "execution:error"
)

type Message struct {
	From    string
	Type    string
	Payload any
}

// Request is the JSON frame a viewer sends.
type Request struct {
	Action string `json:"action"`
	Code   string `json:"code,omitempty"`
}

type ExecuteRequest struct {
	Code string `json:"code"`
}

// DecodeRequest turns a raw viewer frame into a typed Message.
func DecodeRequest(from string, data []byte) (Message, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Message{}, ErrInvalidJSON
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return Message{}, ErrMissingAction
	}

	msg := Message{From: from, Type: action}
	if action == ActionExecute {
		msg.Payload = ExecuteRequest{Code: req.Code}
	}
	return msg, nil
}

type Event struct {
	Type        string                    `json:"type"`
	Data        *executor.MemorySnapshot  `json:"data,omitempty"`
	Step        *int                      `json:"step,omitempty"`
	Operation   *executor.MemoryOperation `json:"operation,omitempty"`
	MemoryState *executor.MemorySnapshot  `json:"memoryState,omitempty"`
	TotalSteps  *int                      `json:"totalSteps,omitempty"`
	RunID       string                    `json:"runId,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

func MemoryUpdateEvent(snap executor.MemorySnapshot) Event {
	return Event{Type: EventMemoryUpdate, Data: &snap}
}

func StepEvent(step simulation_service.Step) Event {
	return Event{
		Type:        EventExecutionStep,
		Step:        &step.Index,
		Operation:   &step.Operation,
		MemoryState: &step.Snapshot,
	}
}

func CompleteEvent(runID string, totalSteps int) Event {
	return Event{Type: EventExecutionComplete, TotalSteps: &totalSteps, RunID: runID}
}

func ErrorEvent(err error) Event {
	return Event{Type: EventExecutionError, Error: err.Error()}
}
