// Package events publishes pipeline analysis outcomes to an event bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/pipelines/internal/model"
)

// Event topic constants
const (
	TopicPipelineParsed = "pipelines.pipeline.parsed"

	// TopicAll matches every pipelines topic.
	TopicAll = "pipelines.>"
)

// PipelineParsed is emitted after every successful analysis.
type PipelineParsed struct {
	RequestID string             `json:"request_id,omitempty"`
	Result    *model.ParseResult `json:"result"`
	Dropped   int                `json:"dropped_edges"`
	Transport string             `json:"transport"` // "http" or "grpc"
	ParsedAt  time.Time          `json:"parsed_at"`
}

// DecodePipelineParsed unmarshals a raw PipelineParsed payload.
func DecodePipelineParsed(data []byte) (*PipelineParsed, error) {
	var ev PipelineParsed
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", TopicPipelineParsed, err)
	}
	if ev.Result == nil {
		return nil, fmt.Errorf("decoding %s event: missing result", TopicPipelineParsed)
	}
	return &ev, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
