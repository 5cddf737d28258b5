package communication

import (
	"context"
	"sync"
)

// BufferedSession collects events for transports that answer a request in
// one piece, such as an HTTP POST or a unary RPC.
type BufferedSession struct {
	id         string
	remoteAddr string
	transport  string

	mu     sync.Mutex
	events []Event
}

func NewBufferedSession(id, remoteAddr, transport string) *BufferedSession {
	return &BufferedSession{
		id:         id,
		remoteAddr: remoteAddr,
		transport:  transport,
	}
}

func (s *BufferedSession) ID() string         { return s.id }
func (s *BufferedSession) RemoteAddr() string { return s.remoteAddr }
func (s *BufferedSession) Transport() string  { return s.transport }
func (s *BufferedSession) Streaming() bool    { return false }

func (s *BufferedSession) Send(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *BufferedSession) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

var _ Session = (*BufferedSession)(nil)
