package server

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/pipelines/internal/model"
)

// Fully-qualified names of the pipeline gRPC service and its methods.
const (
	PipelineServiceName = "pipelines.v1.PipelineService"
	ParsePipelineMethod = "/" + PipelineServiceName + "/ParsePipeline"
	HealthMethod        = "/" + PipelineServiceName + "/Health"
)

// PipelineServiceServer is the gRPC surface of the service. Messages are
// well-known protobuf types so no generated code is needed: ParsePipeline
// takes and returns google.protobuf.Struct values holding the same JSON
// documents as the HTTP transport.
type PipelineServiceServer interface {
	ParsePipeline(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

var _ PipelineServiceServer = (*PipelineServer)(nil)

// PipelineServiceDesc describes PipelineServiceServer for grpc.RegisterService.
var PipelineServiceDesc = grpc.ServiceDesc{
	ServiceName: PipelineServiceName,
	HandlerType: (*PipelineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ParsePipeline", Handler: parsePipelineHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pipelines/v1/pipelines.proto",
}

func parsePipelineHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PipelineServiceServer).ParsePipeline(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ParsePipelineMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PipelineServiceServer).ParsePipeline(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PipelineServiceServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: HealthMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PipelineServiceServer).Health(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	// AuthToken enables bearer-token auth when non-empty.
	AuthToken string
}

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the PipelineService, reflection, and returns the server ready to serve.
func NewGRPCServer(ps *PipelineServer, cfg GRPCConfig, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			RequestIDInterceptor,
			LoggingInterceptor(ps.logger),
			AuthInterceptor(cfg.AuthToken),
		),
	}, opts...)
	srv := grpc.NewServer(opts...)

	srv.RegisterService(&PipelineServiceDesc, ps)
	reflection.Register(srv)

	return srv
}

// ParsePipeline analyzes the pipeline document carried in req.
func (s *PipelineServer) ParsePipeline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	data, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode request: %v", err)
	}

	result, err := s.parseDocument(ctx, data, transportGRPC)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			return nil, status.Error(codes.InvalidArgument, ie.Error())
		}
		return nil, status.Errorf(codes.Internal, "%v", err)
	}

	resp, err := resultToStruct(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return resp, nil
}

// Health returns the service health status.
func (s *PipelineServer) Health(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("ok"), nil
}

func resultToStruct(r *model.ParseResult) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]any{
		"num_nodes": r.NumNodes,
		"num_edges": r.NumEdges,
		"is_dag":    r.IsDAG,
	})
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return st, nil
}
