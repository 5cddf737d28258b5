package localdisc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AnishMulay/memscope/internal/log_service"
)

func TestLocalDiscLogService_FiltersByLevel(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalDiscLogService(dir, "viewer-node", "WARN")
	if err != nil {
		t.Fatalf("NewLocalDiscLogService() error = %v", err)
	}

	ls.Info(log_service.LogEvent{Message: "dropped"})
	ls.Warn(log_service.LogEvent{Message: "kept", Metadata: map[string]any{"b": 2, "a": 1}})
	if err := ls.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "viewer-node.log"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Errorf("INFO event written below WARN threshold: %q", out)
	}
	if !strings.Contains(out, "[viewer-node] WARN: kept a=1 b=2") {
		t.Errorf("log output = %q", out)
	}
}

func TestFormatLog(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := formatLog(log_service.InfoLevel, log_service.LogEvent{
		Timestamp: ts,
		NodeID:    "n1",
		Message:   "run finished",
		Metadata:  map[string]any{"steps": 2},
	})
	want := "2024-03-01T12:00:00Z [n1] INFO: run finished steps=2"
	if got != want {
		t.Errorf("formatLog() = %q, want %q", got, want)
	}
}
