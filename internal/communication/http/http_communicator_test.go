package httpcomm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/AnishMulay/memscope/internal/communication"
	"github.com/AnishMulay/memscope/internal/executor"
	"github.com/AnishMulay/memscope/internal/log_service"
	"golang.org/x/net/websocket"
)

type recordingHandler struct {
	mu    sync.Mutex
	types []string
}

func (h *recordingHandler) handle(ctx context.Context, sess communication.Session, msg communication.Message) error {
	h.mu.Lock()
	h.types = append(h.types, msg.Type)
	h.mu.Unlock()

	switch msg.Type {
	case communication.ActionExecute:
		req := msg.Payload.(communication.ExecuteRequest)
		state := executor.NewExecutionState(executor.DefaultFileSize)
		ops := executor.ParseAndExecute(req.Code, state)
		if err := sess.Send(ctx, communication.MemoryUpdateEvent(executor.Snapshot(*state))); err != nil {
			return err
		}
		return sess.Send(ctx, communication.CompleteEvent("run", len(ops)))
	case communication.ActionReset:
		return sess.Send(ctx, communication.MemoryUpdateEvent(executor.Snapshot(*executor.NewExecutionState(0))))
	}
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.types...)
}

func startCommunicator(t *testing.T, h *recordingHandler) *HTTPCommunicator {
	t.Helper()
	c := NewHTTPCommunicator("127.0.0.1:0", log_service.NopLogService{})
	if err := c.Start(h.handle); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

func TestHTTPCommunicator_WebSocket(t *testing.T) {
	h := &recordingHandler{}
	c := startCommunicator(t, h)

	conn, err := websocket.Dial("ws://"+c.Address()+"/ws", "", "http://localhost/")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	req := communication.Request{Action: communication.ActionExecute, Code: "fseek(fp, 48, SEEK_SET);\nfread(&s, 24, 1, fp);"}
	if err := websocket.JSON.Send(conn, req); err != nil {
		t.Fatal(err)
	}

	var update, done communication.Event
	if err := websocket.JSON.Receive(conn, &update); err != nil {
		t.Fatal(err)
	}
	if err := websocket.JSON.Receive(conn, &done); err != nil {
		t.Fatal(err)
	}
	if update.Type != communication.EventMemoryUpdate || update.Data.FilePointer != 48 {
		t.Errorf("update = %+v", update)
	}
	if done.Type != communication.EventExecutionComplete || *done.TotalSteps != 2 {
		t.Errorf("done = %+v", done)
	}

	if err := websocket.Message.Send(conn, "not json"); err != nil {
		t.Fatal(err)
	}
	var bad communication.Event
	if err := websocket.JSON.Receive(conn, &bad); err != nil {
		t.Fatal(err)
	}
	if bad.Type != communication.EventExecutionError || bad.Error != communication.ErrInvalidJSON.Error() {
		t.Errorf("bad frame reply = %+v", bad)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		seen := h.seen()
		if len(seen) > 0 && seen[len(seen)-1] == communication.MessageTypeViewerDisconnect {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	seen := h.seen()
	if len(seen) != 3 || seen[0] != communication.MessageTypeViewerConnect || seen[2] != communication.MessageTypeViewerDisconnect {
		t.Errorf("handler saw %v", seen)
	}
}

func TestHTTPCommunicator_PostMessage(t *testing.T) {
	c := startCommunicator(t, &recordingHandler{})
	url := "http://" + c.Address() + "/message"

	body, _ := json.Marshal(communication.Request{Action: communication.ActionReset})
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var events []communication.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != communication.EventMemoryUpdate || events[0].Data.StructType != "Student" {
		t.Errorf("events = %+v", events)
	}
}

func TestHTTPCommunicator_PostMessageRejects(t *testing.T) {
	c := startCommunicator(t, &recordingHandler{})
	url := "http://" + c.Address() + "/message"

	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(`{"code":"x"}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing action status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", resp.StatusCode)
	}
}

func TestHTTPCommunicator_Healthz(t *testing.T) {
	c := startCommunicator(t, &recordingHandler{})
	resp, err := http.Get("http://" + c.Address() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHTTPCommunicator_StopIsIdempotent(t *testing.T) {
	c := NewHTTPCommunicator("127.0.0.1:0", log_service.NopLogService{})
	if err := c.Start((&recordingHandler{}).handle); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
