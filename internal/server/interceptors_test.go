package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

var parseInfo = &grpc.UnaryServerInfo{FullMethod: ParsePipelineMethod}

func TestAuthInterceptor(t *testing.T) {
	for _, tc := range []struct {
		name     string
		token    string
		method   string
		md       metadata.MD
		wantCode codes.Code
	}{
		{name: "Disabled", token: "", method: ParsePipelineMethod, wantCode: codes.OK},
		{name: "HealthExempt", token: "secret", method: HealthMethod, wantCode: codes.OK},
		{name: "MissingMetadata", token: "secret", method: ParsePipelineMethod, wantCode: codes.Unauthenticated},
		{name: "MissingAuthHeader", token: "secret", method: ParsePipelineMethod, md: metadata.Pairs("other", "value"), wantCode: codes.Unauthenticated},
		{name: "WrongToken", token: "secret", method: ParsePipelineMethod, md: metadata.Pairs("authorization", "Bearer wrong"), wantCode: codes.Unauthenticated},
		{name: "InvalidScheme", token: "secret", method: ParsePipelineMethod, md: metadata.Pairs("authorization", "Basic secret"), wantCode: codes.Unauthenticated},
		{name: "CorrectToken", token: "secret", method: ParsePipelineMethod, md: metadata.Pairs("authorization", "Bearer secret"), wantCode: codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if got := status.Code(err); got != tc.wantCode {
				t.Fatalf("code = %v, want %v (err=%v)", got, tc.wantCode, err)
			}
			if tc.wantCode == codes.OK && resp != "ok" {
				t.Fatalf("expected 'ok', got %v", resp)
			}
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	panicking := func(context.Context, any) (any, error) {
		panic("boom")
	}
	_, err := RecoveryInterceptor(context.Background(), nil, parseInfo, panicking)
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}

func TestRequestIDInterceptor_KeepsSuppliedID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDMetadataKey, "trace-7"))
	var got string
	_, err := RequestIDInterceptor(ctx, nil, parseInfo, func(ctx context.Context, _ any) (any, error) {
		got = RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "trace-7" {
		t.Errorf("request id = %q, want trace-7", got)
	}
}

func TestRequestIDInterceptor_Generates(t *testing.T) {
	var got string
	_, _ = RequestIDInterceptor(context.Background(), nil, parseInfo, func(ctx context.Context, _ any) (any, error) {
		got = RequestIDFromContext(ctx)
		return nil, nil
	})
	if got == "" {
		t.Error("expected a generated request id")
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	want := status.Error(codes.InvalidArgument, "nope")
	_, err := LoggingInterceptor(logger)(context.Background(), nil, parseInfo, func(context.Context, any) (any, error) {
		return nil, want
	})
	if err != want {
		t.Errorf("err = %v, want %v", err, want)
	}
}
