// Package client provides a transport-agnostic interface for the pipelines
// service, with HTTP/JSON and gRPC implementations.
package client

import (
	"context"

	"github.com/alfredjeanlab/pipelines/internal/model"
)

// PipelineClient is the interface the pd CLI uses to talk to a pipelines
// server. It is implemented by HTTPClient (default) and GRPCClient.
type PipelineClient interface {
	// ParsePipeline submits p for analysis and returns its counts and DAG status.
	ParsePipeline(ctx context.Context, p *model.Pipeline) (*model.ParseResult, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

var (
	_ PipelineClient = (*HTTPClient)(nil)
	_ PipelineClient = (*GRPCClient)(nil)
)
