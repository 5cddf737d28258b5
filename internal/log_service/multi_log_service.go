package log_service

// MultiLogService forwards every event to each of its sinks.
type MultiLogService struct {
	sinks []LogService
}

func NewMultiLogService(sinks ...LogService) *MultiLogService {
	return &MultiLogService{sinks: sinks}
}

func (m *MultiLogService) Debug(event LogEvent) {
	for _, s := range m.sinks {
		s.Debug(event)
	}
}

func (m *MultiLogService) Info(event LogEvent) {
	for _, s := range m.sinks {
		s.Info(event)
	}
}

func (m *MultiLogService) Warn(event LogEvent) {
	for _, s := range m.sinks {
		s.Warn(event)
	}
}

func (m *MultiLogService) Error(event LogEvent) {
	for _, s := range m.sinks {
		s.Error(event)
	}
}

var _ LogService = (*MultiLogService)(nil)

// NopLogService drops everything.
type NopLogService struct{}

func (NopLogService) Debug(LogEvent) {}
func (NopLogService) Info(LogEvent)  {}
func (NopLogService) Warn(LogEvent)  {}
func (NopLogService) Error(LogEvent) {}

var _ LogService = NopLogService{}
