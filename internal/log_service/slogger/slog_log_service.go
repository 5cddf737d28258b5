package slogger

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AnishMulay/memscope/internal/log_service"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Options struct {
	NodeID string
	Level  string
	Writer io.Writer
	// Journal also sends records to the systemd journal when it is reachable.
	Journal bool
}

// SlogLogService adapts LogEvents onto a log/slog handler fan-out.
type SlogLogService struct {
	nodeID string
	logger *slog.Logger
}

func NewSlogLogService(opts Options) *SlogLogService {
	level := new(slog.LevelVar)
	level.Set(toSlogLevel(opts.Level))

	var handlers []slog.Handler
	if opts.Writer != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{
			Level: level,
		}))
	}

	if opts.Journal {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err == nil {
			handlers = append(handlers, journalHandler)
		} else if len(handlers) > 0 {
			_ = handlers[0].Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable: "+err.Error(), 0))
		}
	}

	return &SlogLogService{
		nodeID: opts.NodeID,
		logger: slog.New(slogmulti.Fanout(handlers...)),
	}
}

func (s *SlogLogService) emit(level slog.Level, event log_service.LogEvent) {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}

	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	if s.nodeID != "" {
		attrs = append(attrs, slog.String("node", s.nodeID))
	}
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Metadata[k]))
	}
	s.logger.LogAttrs(ctx, level, event.Message, attrs...)
}

func (s *SlogLogService) Debug(event log_service.LogEvent) { s.emit(slog.LevelDebug, event) }
func (s *SlogLogService) Info(event log_service.LogEvent)  { s.emit(slog.LevelInfo, event) }
func (s *SlogLogService) Warn(event log_service.LogEvent)  { s.emit(slog.LevelWarn, event) }
func (s *SlogLogService) Error(event log_service.LogEvent) { s.emit(slog.LevelError, event) }

var _ log_service.LogService = (*SlogLogService)(nil)

func toSlogLevel(level string) slog.Level {
	switch log_service.GetLevelValue(level) {
	case log_service.DebugLevelValue:
		return slog.LevelDebug
	case log_service.WarnLevelValue:
		return slog.LevelWarn
	case log_service.ErrorLevelValue:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func toJournalKey(str string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(str))
}
