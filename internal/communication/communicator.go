package communication

import "context"

const (
	TransportWebSocket = "websocket"
	TransportHTTP      = "http"
	TransportGRPC      = "grpc"
)

// Session is one viewer's connection as seen by the message handler.
type Session interface {
	ID() string
	RemoteAddr() string
	Transport() string
	// Streaming reports whether events reach the viewer as they are sent.
	// Buffered sessions only deliver once the handler returns.
	Streaming() bool
	Send(ctx context.Context, event Event) error
}

type Communicator interface {
	Start(handler MessageHandler) error
	Stop() error
	Address() string
}
