package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveParse(t *testing.T) {
	m := New()
	m.ObserveParse("http", true, 3, 1, time.Millisecond)
	m.ObserveParse("http", false, 2, 0, time.Millisecond)
	m.ObserveParse("grpc", true, 0, 2, time.Millisecond)

	if got := testutil.ToFloat64(m.parsed.WithLabelValues("true", "http")); got != 1 {
		t.Errorf("parsed{is_dag=true,transport=http} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.parsed.WithLabelValues("false", "http")); got != 1 {
		t.Errorf("parsed{is_dag=false,transport=http} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.droppedEdges); got != 3 {
		t.Errorf("dropped edges = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("duration collectors = %d, want 1", got)
	}
}

func TestObserveRejected(t *testing.T) {
	m := New()
	m.ObserveRejected("decode")
	m.ObserveRejected("decode")
	m.ObserveRejected("validation")

	if got := testutil.ToFloat64(m.rejected.WithLabelValues("decode")); got != 2 {
		t.Errorf("rejected{reason=decode} = %v, want 2", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.ObserveParse("http", true, 1, 0, time.Second)
	m.ObserveRejected("decode")
	if m.Registry() != nil {
		t.Error("nil Metrics should have nil registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil Metrics handler status = %d, want 404", rec.Code)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveParse("http", true, 2, 0, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`pipelines_parsed_total{is_dag="true",transport="http"} 1`,
		"pipelines_parse_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
