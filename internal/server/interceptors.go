package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// requestIDMetadataKey carries the request ID in gRPC metadata.
const requestIDMetadataKey = "x-request-id"

// LoggingInterceptor logs the method name, duration, and error (if any) for every
// unary RPC call.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			logger.Error("rpc completed",
				"method", info.FullMethod,
				"duration", duration,
				"code", status.Code(err).String(),
				"request_id", RequestIDFromContext(ctx),
				"error", err,
			)
		} else {
			logger.Info("rpc completed",
				"method", info.FullMethod,
				"duration", duration,
				"request_id", RequestIDFromContext(ctx),
			)
		}

		return resp, err
	}
}

// RecoveryInterceptor catches panics in downstream handlers, logs the stack
// trace, and returns a codes.Internal error instead of crashing the server.
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in gRPC handler",
				"method", info.FullMethod,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// RequestIDInterceptor stores the caller's x-request-id metadata value (or a
// generated one) in the context and returns it as a response header.
func RequestIDInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	var supplied string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
			supplied = vals[0]
		}
	}
	if id := newRequestID(supplied); id != "" {
		ctx = WithRequestID(ctx, id)
		// SetHeader fails only outside a real RPC (e.g. direct calls in tests).
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))
	}
	return handler(ctx, req)
}

// AuthInterceptor returns a gRPC unary interceptor that checks the
// "authorization" metadata header for a valid Bearer token. When token is
// empty, auth is disabled and all requests pass through. The Health RPC is
// always exempt.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if token == "" {
			return handler(ctx, req)
		}

		if info.FullMethod == HealthMethod {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		vals := md.Get("authorization")
		if len(vals) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		provided := vals[0]
		if !strings.HasPrefix(provided, "Bearer ") {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization scheme")
		}
		provided = strings.TrimPrefix(provided, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}
