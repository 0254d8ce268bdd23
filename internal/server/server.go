package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/pipelines/internal/events"
	"github.com/alfredjeanlab/pipelines/internal/graph"
	"github.com/alfredjeanlab/pipelines/internal/metrics"
	"github.com/alfredjeanlab/pipelines/internal/model"
)

// Transport labels used in metrics and events.
const (
	transportHTTP = "http"
	transportGRPC = "grpc"
)

// Options configures a PipelineServer. Zero values are usable: events are
// dropped, metrics are not recorded and slog.Default() is used for logging.
type Options struct {
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// StrictIDs rejects pipelines whose nodes share an identifier.
	StrictIDs bool
}

// PipelineServer analyzes submitted pipelines for the HTTP and gRPC transports.
// It holds no per-request state and is safe for concurrent use.
type PipelineServer struct {
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	strictIDs bool
	now       func() time.Time
}

// NewPipelineServer returns a PipelineServer with the given collaborators.
func NewPipelineServer(opts Options) *PipelineServer {
	s := &PipelineServer{
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		strictIDs: opts.StrictIDs,
		now:       time.Now,
	}
	if s.publisher == nil {
		s.publisher = &events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// parseDocument decodes a JSON pipeline document and analyzes it.
func (s *PipelineServer) parseDocument(ctx context.Context, data []byte, transport string) (*model.ParseResult, error) {
	p, err := model.ParsePipeline(data)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			s.metrics.ObserveRejected("validation")
			return nil, inputError(ve.Error())
		}
		s.metrics.ObserveRejected("decode")
		return nil, inputError("invalid pipeline: " + err.Error())
	}
	return s.parsePipeline(ctx, p, transport)
}

// parsePipeline runs the analyzer on p, records metrics and publishes a
// PipelineParsed event. Returns inputError for validation failures.
func (s *PipelineServer) parsePipeline(ctx context.Context, p *model.Pipeline, transport string) (*model.ParseResult, error) {
	if s.strictIDs {
		if err := model.ValidateIdentifiers(p.Nodes); err != nil {
			s.metrics.ObserveRejected("validation")
			return nil, inputError(err.Error())
		}
	}

	start := s.now()
	analysis := graph.Analyze(p.Nodes, p.Edges)
	elapsed := s.now().Sub(start)

	s.metrics.ObserveParse(transport, analysis.IsDAG, analysis.NumNodes, analysis.Dropped, elapsed)

	result := analysis.Result()
	requestID := RequestIDFromContext(ctx)
	if analysis.Dropped > 0 {
		s.logger.Debug("edges dropped", "request_id", requestID, "dropped", analysis.Dropped)
	}

	s.publish(ctx, events.TopicPipelineParsed, events.PipelineParsed{
		RequestID: requestID,
		Result:    result,
		Dropped:   analysis.Dropped,
		Transport: transport,
		ParsedAt:  start.UTC(),
	})

	return result, nil
}

// publish sends an event to the bus. It is best-effort: failures are logged
// and never reach the caller.
func (s *PipelineServer) publish(ctx context.Context, topic string, event any) {
	// The event outlives the request; a client hanging up must not cancel it.
	if err := s.publisher.Publish(context.WithoutCancel(ctx), topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "request_id", RequestIDFromContext(ctx), "error", err)
	}
}
