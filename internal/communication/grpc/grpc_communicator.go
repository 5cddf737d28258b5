package grpccomm

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/AnishMulay/memscope/internal/communication"
	"github.com/AnishMulay/memscope/internal/log_service"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type GRPCCommunicator struct {
	listenAddress string
	handler       communication.MessageHandler
	grpcServer    *grpc.Server
	listener      net.Listener
	ls            log_service.LogService

	baseCtx context.Context
	cancel  context.CancelFunc

	viewerLock sync.Mutex
	viewers    map[string]string
	stopped    bool
	stopMutex  sync.Mutex
}

func NewGRPCCommunicator(addr string, ls log_service.LogService) *GRPCCommunicator {
	ctx, cancel := context.WithCancel(context.Background())
	return &GRPCCommunicator{
		listenAddress: addr,
		ls:            ls,
		baseCtx:       ctx,
		cancel:        cancel,
		viewers:       make(map[string]string),
	}
}

func (c *GRPCCommunicator) Address() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.listenAddress
}

func (c *GRPCCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting GRPC communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	lis, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to listen on address",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return communication.ErrGRPCListenFailed
	}
	c.Serve(lis, handler)
	return nil
}

// Serve registers the simulator service and serves it on lis in the background.
func (c *GRPCCommunicator) Serve(lis net.Listener, handler communication.MessageHandler) {
	c.handler = handler
	c.listener = lis
	c.grpcServer = grpc.NewServer()
	c.grpcServer.RegisterService(&simulatorServiceDesc, &grpcServer{comm: c})

	c.ls.Info(log_service.LogEvent{
		Message:  "GRPC communicator started successfully",
		Metadata: map[string]any{"address": c.Address()},
	})

	go func() {
		if err := c.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			c.ls.Error(log_service.LogEvent{
				Message:  "GRPC server error",
				Metadata: map[string]any{"address": c.Address(), "error": err.Error()},
			})
		}
	}()
}

func (c *GRPCCommunicator) Stop() error {
	c.stopMutex.Lock()
	defer c.stopMutex.Unlock()

	if c.stopped {
		c.ls.Debug(log_service.LogEvent{
			Message:  "GRPC communicator already stopped, skipping",
			Metadata: map[string]any{"address": c.Address()},
		})
		return nil
	}

	c.ls.Info(log_service.LogEvent{
		Message:  "Stopping GRPC communicator",
		Metadata: map[string]any{"address": c.Address()},
	})

	c.cancel()
	if c.grpcServer != nil {
		c.grpcServer.GracefulStop()
	}

	c.viewerLock.Lock()
	viewers := c.viewers
	c.viewers = make(map[string]string)
	c.viewerLock.Unlock()
	for id, addr := range viewers {
		sess := communication.NewBufferedSession(id, addr, communication.TransportGRPC)
		c.dispatch(context.Background(), sess, communication.MessageTypeViewerDisconnect, nil)
	}

	c.stopped = true
	c.ls.Info(log_service.LogEvent{
		Message:  "GRPC communicator stopped successfully",
		Metadata: map[string]any{"address": c.Address()},
	})
	return nil
}

func (c *GRPCCommunicator) dispatch(ctx context.Context, sess communication.Session, msgType string, payload any) error {
	if c.handler == nil {
		return communication.ErrHandlerNotSet
	}
	return c.handler(ctx, sess, communication.Message{From: sess.ID(), Type: msgType, Payload: payload})
}

// viewer resolves the caller's identity. Calls without a viewer id header get
// a one-off id, and release() disconnects them when the call ends.
func (c *GRPCCommunicator) viewer(ctx context.Context) (id, addr string, release func()) {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr = p.Addr.String()
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(ViewerIDHeader); len(vals) > 0 && vals[0] != "" {
			id = vals[0]
			c.viewerLock.Lock()
			_, known := c.viewers[id]
			c.viewers[id] = addr
			c.viewerLock.Unlock()
			if !known {
				sess := communication.NewBufferedSession(id, addr, communication.TransportGRPC)
				_ = c.dispatch(ctx, sess, communication.MessageTypeViewerConnect, nil)
			}
			return id, addr, func() {}
		}
	}

	id = uuid.New().String()
	sess := communication.NewBufferedSession(id, addr, communication.TransportGRPC)
	_ = c.dispatch(ctx, sess, communication.MessageTypeViewerConnect, nil)
	return id, addr, func() {
		_ = c.dispatch(context.Background(), sess, communication.MessageTypeViewerDisconnect, nil)
	}
}

type grpcServer struct {
	comm *GRPCCommunicator
}

func (s *grpcServer) execute(req *wrapperspb.StringValue, stream grpc.ServerStream) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	stop := context.AfterFunc(s.comm.baseCtx, cancel)
	defer stop()

	id, addr, release := s.comm.viewer(ctx)
	defer release()

	sess := &streamSession{id: id, remoteAddr: addr, stream: stream}
	err := s.comm.dispatch(ctx, sess, communication.ActionExecute, communication.ExecuteRequest{Code: req.GetValue()})
	if err != nil {
		s.comm.ls.Error(log_service.LogEvent{
			Message:  "Message handler failed",
			Metadata: map[string]any{"viewerID": id, "type": communication.ActionExecute, "error": err.Error()},
		})
		if errors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, err.Error())
		}
		return status.Error(codes.Internal, communication.ErrMessageHandlerFailed.Error())
	}
	return nil
}

func (s *grpcServer) reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.unary(ctx, communication.ActionReset)
}

func (s *grpcServer) step(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.unary(ctx, communication.ActionStep)
}

// unary runs an action whose answer is a single event.
func (s *grpcServer) unary(ctx context.Context, action string) (*structpb.Struct, error) {
	id, addr, release := s.comm.viewer(ctx)
	defer release()

	sess := communication.NewBufferedSession(id, addr, communication.TransportGRPC)
	if err := s.comm.dispatch(ctx, sess, action, nil); err != nil {
		return nil, status.Error(codes.Internal, communication.ErrMessageHandlerFailed.Error())
	}

	events := sess.Events()
	if len(events) == 0 {
		return &structpb.Struct{}, nil
	}
	out, err := eventToStruct(events[len(events)-1])
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

type streamSession struct {
	id         string
	remoteAddr string

	mu     sync.Mutex
	stream grpc.ServerStream
}

func (s *streamSession) ID() string         { return s.id }
func (s *streamSession) RemoteAddr() string { return s.remoteAddr }
func (s *streamSession) Transport() string  { return communication.TransportGRPC }
func (s *streamSession) Streaming() bool    { return true }

func (s *streamSession) Send(ctx context.Context, event communication.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := eventToStruct(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.SendMsg(msg)
}

var (
	_ communication.Communicator = (*GRPCCommunicator)(nil)
	_ communication.Session      = (*streamSession)(nil)
	_ simulatorServer            = (*grpcServer)(nil)
)
