package grpccomm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName   = "memscope.Simulator"
	ExecuteMethod = "/memscope.Simulator/Execute"
	ResetMethod   = "/memscope.Simulator/Reset"
	StepMethod    = "/memscope.Simulator/Step"

	// ViewerIDHeader pins calls to one viewer so that Step can walk the
	// trace of an earlier Execute.
	ViewerIDHeader = "x-viewer-id"
)

// simulatorServer is the service implementation contract. Requests and events
// travel as protobuf well-known types, so no generated code is needed.
type simulatorServer interface {
	execute(req *wrapperspb.StringValue, stream grpc.ServerStream) error
	reset(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	step(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var simulatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*simulatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reset", Handler: resetHandler},
		{MethodName: "Step", Handler: stepHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Execute", Handler: executeHandler, ServerStreams: true},
	},
	Metadata: "memscope/simulator.proto",
}

func executeHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(simulatorServer).execute(in, stream)
}

func resetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(simulatorServer).reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ResetMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(simulatorServer).reset(ctx, req.(*emptypb.Empty))
	})
}

func stepHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(simulatorServer).step(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StepMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(simulatorServer).step(ctx, req.(*emptypb.Empty))
	})
}
