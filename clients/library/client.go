package memlib

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnishMulay/memscope/internal/communication"
	"golang.org/x/net/websocket"
)

var ErrExecutionFailed = errors.New("execution failed")

// Client is a websocket viewer of a memscope server.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to addr, which may be host:port or a full ws:// URL.
func Dial(ctx context.Context, addr string) (*Client, error) {
	url := addr
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		url = "ws://" + strings.TrimSuffix(addr, "/") + "/ws"
	}
	cfg, err := websocket.NewConfig(url, "http://localhost/")
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(req communication.Request) error {
	return websocket.JSON.Send(c.conn, req)
}

func (c *Client) Next() (communication.Event, error) {
	var event communication.Event
	err := websocket.JSON.Receive(c.conn, &event)
	return event, err
}

// Execute sends code and hands every event to fn until the run completes
// or ctx is done. It returns the number of steps the server reported.
func (c *Client) Execute(ctx context.Context, code string, fn func(communication.Event)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	// Unblock a pending read once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		if stop() {
			return
		}
		_ = c.conn.SetDeadline(time.Time{})
	}()

	if err := c.send(communication.Request{Action: communication.ActionExecute, Code: code}); err != nil {
		return 0, contextErr(ctx, err)
	}
	for {
		event, err := c.Next()
		if err != nil {
			return 0, contextErr(ctx, err)
		}
		if fn != nil {
			fn(event)
		}
		switch event.Type {
		case communication.EventExecutionComplete:
			if event.TotalSteps == nil {
				return 0, nil
			}
			return *event.TotalSteps, nil
		case communication.EventExecutionError:
			return 0, fmt.Errorf("%w: %s", ErrExecutionFailed, event.Error)
		}
	}
}

func (c *Client) Reset() (communication.Event, error) {
	if err := c.send(communication.Request{Action: communication.ActionReset}); err != nil {
		return communication.Event{}, err
	}
	return c.Next()
}

func (c *Client) Step() (communication.Event, error) {
	if err := c.send(communication.Request{Action: communication.ActionStep}); err != nil {
		return communication.Event{}, err
	}
	return c.Next()
}

// contextErr prefers ctx's error over the I/O error its deadline caused.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
