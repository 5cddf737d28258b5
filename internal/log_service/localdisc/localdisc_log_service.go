package localdisc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AnishMulay/memscope/internal/log_service"
)

// LocalDiscLogService appends one line per event to <logDir>/<nodeID>.log.
type LocalDiscLogService struct {
	nodeID   string
	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	minLevel int
}

func NewLocalDiscLogService(logDir string, nodeID string, minLogLevel string) (*LocalDiscLogService, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, fmt.Sprintf("%s.log", nodeID))
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &LocalDiscLogService{
		nodeID:   nodeID,
		file:     file,
		logger:   log.New(file, "", 0),
		minLevel: log_service.GetLevelValue(minLogLevel),
	}, nil
}

func (ls *LocalDiscLogService) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.file.Close()
}

func formatLog(level string, event log_service.LogEvent) string {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var meta strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&meta, " %s=%v", k, event.Metadata[k])
	}

	return fmt.Sprintf("%s [%s] %s: %s%s", ts.Format(time.RFC3339), event.NodeID, level, event.Message, meta.String())
}

func (ls *LocalDiscLogService) log(level string, event log_service.LogEvent) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if log_service.GetLevelValue(level) < ls.minLevel {
		return
	}
	event.NodeID = ls.nodeID
	ls.logger.Println(formatLog(level, event))
}

func (ls *LocalDiscLogService) Debug(event log_service.LogEvent) {
	ls.log(log_service.DebugLevel, event)
}

func (ls *LocalDiscLogService) Info(event log_service.LogEvent) {
	ls.log(log_service.InfoLevel, event)
}

func (ls *LocalDiscLogService) Warn(event log_service.LogEvent) {
	ls.log(log_service.WarnLevel, event)
}

func (ls *LocalDiscLogService) Error(event log_service.LogEvent) {
	ls.log(log_service.ErrorLevel, event)
}

var _ log_service.LogService = (*LocalDiscLogService)(nil)
