package log_service

import (
	"strings"
	"time"
)

const (
	DebugLevel = "DEBUG"
	InfoLevel  = "INFO"
	WarnLevel  = "WARN"
	ErrorLevel = "ERROR"
)

const (
	DebugLevelValue = iota
	InfoLevelValue
	WarnLevelValue
	ErrorLevelValue
)

type LogEvent struct {
	Timestamp time.Time
	NodeID    string
	Message   string
	Metadata  map[string]any
}

type LogService interface {
	Debug(event LogEvent)
	Info(event LogEvent)
	Warn(event LogEvent)
	Error(event LogEvent)
}

// GetLevelValue maps a level name to its ordering. Unknown names are treated as INFO.
func GetLevelValue(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case DebugLevel:
		return DebugLevelValue
	case InfoLevel:
		return InfoLevelValue
	case WarnLevel, "WARNING":
		return WarnLevelValue
	case ErrorLevel:
		return ErrorLevelValue
	default:
		return InfoLevelValue
	}
}
