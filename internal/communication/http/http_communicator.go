package httpcomm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AnishMulay/memscope/internal/communication"
	"github.com/AnishMulay/memscope/internal/log_service"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const maxRequestBytes = 1 << 20

// HTTPCommunicator serves viewers over a websocket at /ws, plus a one-shot
// JSON endpoint at /message that answers with every event at once.
type HTTPCommunicator struct {
	listenAddress string
	ls            log_service.LogService

	handler    communication.MessageHandler
	httpServer *http.Server
	listener   net.Listener

	baseCtx context.Context
	cancel  context.CancelFunc

	connLock sync.Mutex
	conns    map[*websocket.Conn]struct{}
	stopped  bool
}

func NewHTTPCommunicator(listenAddress string, ls log_service.LogService) *HTTPCommunicator {
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPCommunicator{
		listenAddress: listenAddress,
		ls:            ls,
		baseCtx:       ctx,
		cancel:        cancel,
		conns:         make(map[*websocket.Conn]struct{}),
	}
}

// Address is the bound address once started, the configured one before.
func (c *HTTPCommunicator) Address() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.listenAddress
}

func (c *HTTPCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting HTTP communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	c.handler = handler

	lis, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to listen on address",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return communication.ErrServerStartFailed
	}
	c.listener = lis
	c.httpServer = &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := c.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.ls.Error(log_service.LogEvent{
				Message:  "HTTP server error",
				Metadata: map[string]any{"address": c.Address(), "error": err.Error()},
			})
		}
	}()

	c.ls.Info(log_service.LogEvent{
		Message:  "HTTP communicator started successfully",
		Metadata: map[string]any{"address": c.Address()},
	})
	return nil
}

func (c *HTTPCommunicator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.Server{
		Handler: c.serveWebSocket,
		// Desktop viewers connect from file:// and app:// origins.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
	})
	mux.HandleFunc("/message", c.handleHTTPMessage)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (c *HTTPCommunicator) Stop() error {
	c.connLock.Lock()
	if c.stopped {
		c.connLock.Unlock()
		return nil
	}
	c.stopped = true
	for conn := range c.conns {
		_ = conn.Close()
	}
	c.connLock.Unlock()

	c.ls.Info(log_service.LogEvent{
		Message:  "Stopping HTTP communicator",
		Metadata: map[string]any{"address": c.Address()},
	})

	c.cancel()
	if c.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.httpServer.Shutdown(ctx); err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to stop HTTP server",
			Metadata: map[string]any{"address": c.Address(), "error": err.Error()},
		})
		return communication.ErrServerStopFailed
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "HTTP communicator stopped successfully",
		Metadata: map[string]any{"address": c.Address()},
	})
	return nil
}

func (c *HTTPCommunicator) track(conn *websocket.Conn) bool {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.stopped {
		return false
	}
	c.conns[conn] = struct{}{}
	return true
}

func (c *HTTPCommunicator) untrack(conn *websocket.Conn) {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	delete(c.conns, conn)
}

func (c *HTTPCommunicator) serveWebSocket(conn *websocket.Conn) {
	defer conn.Close()
	if c.handler == nil || !c.track(conn) {
		return
	}
	defer c.untrack(conn)

	sess := &wsSession{
		id:         uuid.New().String(),
		remoteAddr: conn.Request().RemoteAddr,
		conn:       conn,
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	defer cancel()

	_ = c.handler(ctx, sess, communication.Message{From: sess.id, Type: communication.MessageTypeViewerConnect})
	defer func() {
		_ = c.handler(context.Background(), sess, communication.Message{From: sess.id, Type: communication.MessageTypeViewerDisconnect})
	}()

	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			if !errors.Is(err, io.EOF) {
				c.ls.Debug(log_service.LogEvent{
					Message:  "Websocket receive failed",
					Metadata: map[string]any{"viewerID": sess.id, "error": err.Error()},
				})
			}
			return
		}

		msg, err := communication.DecodeRequest(sess.id, frame)
		if err != nil {
			c.ls.Error(log_service.LogEvent{
				Message:  "Invalid viewer frame",
				Metadata: map[string]any{"viewerID": sess.id, "error": err.Error()},
			})
			if err := sess.Send(ctx, communication.ErrorEvent(err)); err != nil {
				return
			}
			continue
		}

		if err := c.handler(ctx, sess, msg); err != nil {
			c.ls.Error(log_service.LogEvent{
				Message:  "Message handler failed",
				Metadata: map[string]any{"viewerID": sess.id, "type": msg.Type, "error": err.Error()},
			})
			return
		}
	}
}

func (c *HTTPCommunicator) handleHTTPMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if c.handler == nil {
		http.Error(w, communication.ErrHandlerNotSet.Error(), http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	sess := communication.NewBufferedSession(uuid.New().String(), r.RemoteAddr, communication.TransportHTTP)
	msg, err := communication.DecodeRequest(sess.ID(), body)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Invalid JSON in request",
			Metadata: map[string]any{"error": err.Error()},
		})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	_ = c.handler(ctx, sess, communication.Message{From: sess.ID(), Type: communication.MessageTypeViewerConnect})
	handleErr := c.handler(ctx, sess, msg)
	_ = c.handler(context.Background(), sess, communication.Message{From: sess.ID(), Type: communication.MessageTypeViewerDisconnect})

	if handleErr != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Message handler failed",
			Metadata: map[string]any{"type": msg.Type, "error": handleErr.Error()},
		})
		http.Error(w, communication.ErrMessageHandlerFailed.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sess.Events()); err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to write HTTP response body",
			Metadata: map[string]any{"error": err.Error()},
		})
	}
}

var _ communication.Communicator = (*HTTPCommunicator)(nil)
