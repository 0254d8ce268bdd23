package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/pipelines/internal/model"
)

const chainDoc = `{"nodes":[{"id":"a"},{"id":"b"}],"edges":[{"source":"a","target":"b"}]}`

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	if err := os.WriteFile(path, []byte(chainDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p.Nodes) != 2 || len(p.Edges) != 1 {
		t.Errorf("got %d nodes, %d edges", len(p.Nodes), len(p.Edges))
	}
	if p.Nodes[0].ID != "a" || p.Edges[0] != (model.Edge{Source: "a", Target: "b"}) {
		t.Errorf("pipeline = %+v", p)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_Stdin(t *testing.T) {
	p, err := Load(context.Background(), StdinRef, Options{Stdin: strings.NewReader(`{"nodes":[{}]}`)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p.Nodes) != 1 || p.Nodes[0].Explicit {
		t.Errorf("nodes = %+v", p.Nodes)
	}
}

func TestLoad_StdinReadError(t *testing.T) {
	_, err := Load(context.Background(), StdinRef, Options{Stdin: iotest.ErrReader(io.ErrUnexpectedEOF)})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("error = %v, want io.ErrUnexpectedEOF", err)
	}
	if !strings.HasPrefix(err.Error(), "stdin: ") {
		t.Errorf("error %q lacks the stdin prefix", err)
	}
}

func TestLoad_InvalidDocument(t *testing.T) {
	_, err := Load(context.Background(), StdinRef, Options{Stdin: strings.NewReader(`{"edges":[{"source":"a"}]}`)})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *model.ValidationError", err)
	}
}

func TestLoad_EmptyRef(t *testing.T) {
	if _, err := Load(context.Background(), "", Options{}); err == nil {
		t.Fatal("expected error for empty reference")
	}
}

func TestDecode(t *testing.T) {
	p, err := Decode(bytes.NewBufferString(chainDoc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(p.Nodes) != 2 {
		t.Errorf("got %d nodes", len(p.Nodes))
	}
}

func TestParseS3URL(t *testing.T) {
	for _, tc := range []struct {
		ref        string
		bucket     string
		key        string
		wantFailed bool
	}{
		{ref: "s3://pipelines/team/etl.json", bucket: "pipelines", key: "team/etl.json"},
		{ref: "s3://b/k", bucket: "b", key: "k"},
		{ref: "s3://bucket", wantFailed: true},
		{ref: "s3://bucket/", wantFailed: true},
		{ref: "s3:///key", wantFailed: true},
		{ref: "https://bucket/key", wantFailed: true},
	} {
		t.Run(tc.ref, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tc.ref)
			if tc.wantFailed {
				if err == nil {
					t.Fatalf("expected error, got %q %q", bucket, key)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseS3URL() error = %v", err)
			}
			if bucket != tc.bucket || key != tc.key {
				t.Errorf("got (%q, %q), want (%q, %q)", bucket, key, tc.bucket, tc.key)
			}
		})
	}
}

type fakeGetter struct {
	input *s3.GetObjectInput
	body  string
	err   error
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Source_Read(t *testing.T) {
	g := &fakeGetter{body: chainDoc}
	src := &S3Source{client: g, bucket: "pipelines", key: "etl.json"}

	data, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != chainDoc {
		t.Errorf("data = %q", data)
	}
	if *g.input.Bucket != "pipelines" || *g.input.Key != "etl.json" {
		t.Errorf("input = %s/%s", *g.input.Bucket, *g.input.Key)
	}

	g.err = errors.New("access denied")
	if _, err := src.Read(context.Background()); err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("error = %v, want wrapped access denied", err)
	}
}

func TestLoad_S3Endpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chainDoc))
	}))
	defer srv.Close()

	p, err := Load(context.Background(), "s3://pipelines/team/etl.json", Options{
		S3Region:   "us-east-1",
		S3Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if gotPath != "/pipelines/team/etl.json" {
		t.Errorf("path = %q, want path-style /pipelines/team/etl.json", gotPath)
	}
	if len(p.Nodes) != 2 {
		t.Errorf("got %d nodes", len(p.Nodes))
	}
}
