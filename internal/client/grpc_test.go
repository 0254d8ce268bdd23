package client

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/alfredjeanlab/pipelines/internal/model"
	"github.com/alfredjeanlab/pipelines/internal/server"
)

// newBufconnClient serves a real PipelineServer over an in-memory listener
// and returns a GRPCClient connected to it.
func newBufconnClient(t *testing.T, serverToken, clientToken string, opts ...grpc.DialOption) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ps := server.NewPipelineServer(server.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := server.NewGRPCServer(ps, server.GRPCConfig{AuthToken: serverToken})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	opts = append([]grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}, opts...)
	c, err := NewGRPCClient("passthrough:///bufnet", clientToken, opts...)
	if err != nil {
		t.Fatalf("NewGRPCClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGRPCClient_RequestID(t *testing.T) {
	c := newBufconnClient(t, "", "", RequestIDOption("req-7"))

	var header metadata.MD
	err := c.conn.Invoke(context.Background(), healthMethod, &emptypb.Empty{}, new(wrapperspb.StringValue), grpc.Header(&header))
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if got := header.Get("x-request-id"); len(got) != 1 || got[0] != "req-7" {
		t.Errorf("x-request-id = %v, want [req-7]", got)
	}
}

func TestGRPCClient_ParsePipeline(t *testing.T) {
	c := newBufconnClient(t, "", "")

	for _, tc := range []struct {
		name string
		p    *model.Pipeline
		want model.ParseResult
	}{
		{"Empty", &model.Pipeline{}, model.ParseResult{IsDAG: true}},
		{
			"Chain",
			&model.Pipeline{
				Nodes: []model.Node{model.NewNode("a"), model.NewNode("b"), model.NewNode("c")},
				Edges: []model.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
			},
			model.ParseResult{NumNodes: 3, NumEdges: 2, IsDAG: true},
		},
		{
			"Cycle",
			&model.Pipeline{
				Nodes: []model.Node{model.NewNode("a"), model.NewNode("b")},
				Edges: []model.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
			},
			model.ParseResult{NumNodes: 2, NumEdges: 2, IsDAG: false},
		},
		{
			"PositionalIDs",
			&model.Pipeline{
				Nodes: []model.Node{{}, {}},
				Edges: []model.Edge{{Source: "0", Target: "1"}},
			},
			model.ParseResult{NumNodes: 2, NumEdges: 1, IsDAG: true},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.ParsePipeline(context.Background(), tc.p)
			if err != nil {
				t.Fatalf("ParsePipeline() error = %v", err)
			}
			if *got != tc.want {
				t.Errorf("got %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestGRPCClient_Health(t *testing.T) {
	c := newBufconnClient(t, "secret", "")
	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
}

func TestGRPCClient_Auth(t *testing.T) {
	denied := newBufconnClient(t, "secret", "wrong")
	_, err := denied.ParsePipeline(context.Background(), &model.Pipeline{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}

	allowed := newBufconnClient(t, "secret", "secret")
	if _, err := allowed.ParsePipeline(context.Background(), &model.Pipeline{}); err != nil {
		t.Fatalf("ParsePipeline() error = %v", err)
	}
}

func TestStructToResult(t *testing.T) {
	st, err := structpb.NewStruct(map[string]any{"num_nodes": 4, "num_edges": 3, "is_dag": false})
	if err != nil {
		t.Fatal(err)
	}
	got, err := structToResult(st)
	if err != nil {
		t.Fatalf("structToResult() error = %v", err)
	}
	if *got != (model.ParseResult{NumNodes: 4, NumEdges: 3, IsDAG: false}) {
		t.Errorf("got %+v", *got)
	}

	if _, err := structToResult(&structpb.Struct{}); err == nil {
		t.Error("expected error for empty struct")
	}
}
