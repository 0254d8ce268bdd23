package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alfredjeanlab/pipelines/internal/model"
	"github.com/nats-io/nats.go"
)

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicPipelineParsed, PipelineParsed{}); err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	msgs := make(chan *nats.Msg, 1)
	if _, err := nc.ChanSubscribe(TopicPipelineParsed, msgs); err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	nc.Flush()

	parsedAt := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	ev := PipelineParsed{
		RequestID: "pl-test",
		Result:    &model.ParseResult{NumNodes: 2, NumEdges: 1, IsDAG: true},
		Transport: "http",
		ParsedAt:  parsedAt,
	}
	if err := pub.Publish(context.Background(), TopicPipelineParsed, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-msgs:
		got, err := DecodePipelineParsed(msg.Data)
		if err != nil {
			t.Fatalf("DecodePipelineParsed: %v", err)
		}
		if got.RequestID != "pl-test" || *got.Result != *ev.Result || !got.ParsedAt.Equal(parsedAt) {
			t.Errorf("got %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicPipelineParsed, PipelineParsed{}); err == nil {
		t.Fatal("expected error publishing with canceled context")
	}
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", nats.MaxReconnects(0), nats.Timeout(100*time.Millisecond))
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestDecodePipelineParsed(t *testing.T) {
	data, _ := json.Marshal(PipelineParsed{Result: &model.ParseResult{NumNodes: 1, IsDAG: true}, Dropped: 2})
	ev, err := DecodePipelineParsed(data)
	if err != nil {
		t.Fatalf("DecodePipelineParsed: %v", err)
	}
	if ev.Dropped != 2 || ev.Result.NumNodes != 1 {
		t.Errorf("got %+v", ev)
	}

	for _, bad := range []string{`not json`, `{}`, `{"result":null}`} {
		if _, err := DecodePipelineParsed([]byte(bad)); err == nil {
			t.Errorf("DecodePipelineParsed(%s): expected error", bad)
		}
	}
}
