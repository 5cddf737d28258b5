package httpcomm

import (
	"context"
	"sync"

	"github.com/AnishMulay/memscope/internal/communication"
	"golang.org/x/net/websocket"
)

type wsSession struct {
	id         string
	remoteAddr string

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) ID() string         { return s.id }
func (s *wsSession) RemoteAddr() string { return s.remoteAddr }
func (s *wsSession) Transport() string  { return communication.TransportWebSocket }
func (s *wsSession) Streaming() bool    { return true }

func (s *wsSession) Send(ctx context.Context, event communication.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return websocket.JSON.Send(s.conn, event)
}

var _ communication.Session = (*wsSession)(nil)
