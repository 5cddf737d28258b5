package grpccomm

import (
	"context"
	"errors"
	"io"

	"github.com/AnishMulay/memscope/internal/communication"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the simulator service. A non-empty viewerID makes Step follow
// the most recent Execute made with the same id.
type Client struct {
	conn     *grpc.ClientConn
	viewerID string
}

func NewClient(target string, viewerID string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, communication.ErrServerStartFailed
	}
	return &Client{conn: conn, viewerID: viewerID}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.viewerID == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, ViewerIDHeader, c.viewerID)
}

// Execute streams every event of one run to fn, in order.
func (c *Client) Execute(ctx context.Context, code string, fn func(communication.Event) error) error {
	stream, err := c.conn.NewStream(c.outgoing(ctx), &simulatorServiceDesc.Streams[0], ExecuteMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(wrapperspb.String(code)); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		event, err := structToEvent(out)
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

func (c *Client) Reset(ctx context.Context) (communication.Event, error) {
	return c.invoke(ctx, ResetMethod)
}

func (c *Client) Step(ctx context.Context) (communication.Event, error) {
	return c.invoke(ctx, StepMethod)
}

func (c *Client) invoke(ctx context.Context, method string) (communication.Event, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), method, &emptypb.Empty{}, out); err != nil {
		return communication.Event{}, err
	}
	return structToEvent(out)
}
