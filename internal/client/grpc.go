package client

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/pipelines/internal/model"
)

// Method names of the pipelines.v1.PipelineService.
const (
	parsePipelineMethod = "/pipelines.v1.PipelineService/ParsePipeline"
	healthMethod        = "/pipelines.v1.PipelineService/Health"
)

// GRPCClient implements PipelineClient using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a bearer token on every call. Extra
// dial options are appended after the defaults.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(bearerInterceptor(token)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) ParsePipeline(ctx context.Context, p *model.Pipeline) (*model.ParseResult, error) {
	req, err := pipelineToStruct(p)
	if err != nil {
		return nil, err
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, parsePipelineMethod, req, resp); err != nil {
		return nil, err
	}
	return structToResult(resp)
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, healthMethod, &emptypb.Empty{}, resp); err != nil {
		return "", err
	}
	return resp.GetValue(), nil
}

// bearerInterceptor attaches an authorization header to outgoing calls.
func bearerInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if token != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// RequestIDOption makes every call carry id as x-request-id metadata. An
// empty id leaves the server to generate one.
func RequestIDOption(id string) grpc.DialOption {
	return grpc.WithChainUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	})
}

// --- conversion helpers ---

func pipelineToStruct(p *model.Pipeline) (*structpb.Struct, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling pipeline: %w", err)
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("encoding pipeline: %w", err)
	}
	return st, nil
}

func structToResult(st *structpb.Struct) (*model.ParseResult, error) {
	m := st.AsMap()
	nodes, _ := m["num_nodes"].(float64)
	edges, _ := m["num_edges"].(float64)
	isDAG, ok := m["is_dag"].(bool)
	if !ok {
		return nil, fmt.Errorf("decoding response: missing is_dag")
	}
	return &model.ParseResult{
		NumNodes: int(nodes),
		NumEdges: int(edges),
		IsDAG:    isDAG,
	}, nil
}
