package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxBodyBytes caps the size of a submitted pipeline document.
const DefaultMaxBodyBytes = 10 << 20

type Config struct {
	HTTPAddr  string // PIPELINES_HTTP_ADDR (default ":8000")
	GRPCAddr  string // PIPELINES_GRPC_ADDR (default ":9090"; set but empty = gRPC disabled)
	NATSURL   string // PIPELINES_NATS_URL (optional, empty = no events)
	AuthToken string // PIPELINES_AUTH_TOKEN (optional, empty = auth disabled)

	// Cross-origin policy. Each list defaults to "*".
	CORSOrigins []string      // PIPELINES_CORS_ORIGINS (comma-separated)
	CORSMethods []string      // PIPELINES_CORS_METHODS (comma-separated)
	CORSHeaders []string      // PIPELINES_CORS_HEADERS (comma-separated)
	CORSMaxAge  time.Duration // PIPELINES_CORS_MAX_AGE (default 10m; 0 = header omitted)

	MaxBodyBytes int64 // PIPELINES_MAX_BODY_BYTES (default 10 MiB)
	StrictIDs    bool  // PIPELINES_STRICT_IDS (reject duplicate node identifiers)
	Metrics      bool  // PIPELINES_METRICS (default true; serves GET /metrics)
}

// SourceConfig locates pipeline documents read by the pd client.
type SourceConfig struct {
	S3Region   string // PIPELINES_S3_REGION (default "us-east-1")
	S3Endpoint string // PIPELINES_S3_ENDPOINT (custom endpoint for MinIO)
}

// LoadSource reads the document source settings. They are plain strings, so
// loading cannot fail.
func LoadSource() SourceConfig {
	return SourceConfig{
		S3Region:   envOrDefault("PIPELINES_S3_REGION", "us-east-1"),
		S3Endpoint: os.Getenv("PIPELINES_S3_ENDPOINT"),
	}
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:     envOrDefault("PIPELINES_HTTP_ADDR", ":8000"),
		GRPCAddr:     envOrUnset("PIPELINES_GRPC_ADDR", ":9090"),
		NATSURL:      os.Getenv("PIPELINES_NATS_URL"),
		AuthToken:    os.Getenv("PIPELINES_AUTH_TOKEN"),
		CORSOrigins:  splitList(envOrDefault("PIPELINES_CORS_ORIGINS", "*")),
		CORSMethods:  splitList(envOrDefault("PIPELINES_CORS_METHODS", "*")),
		CORSHeaders:  splitList(envOrDefault("PIPELINES_CORS_HEADERS", "*")),
		CORSMaxAge:   10 * time.Minute,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Metrics:      true,
	}

	if v := os.Getenv("PIPELINES_CORS_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PIPELINES_CORS_MAX_AGE: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("PIPELINES_CORS_MAX_AGE: must not be negative")
		}
		c.CORSMaxAge = d
	}

	if v := os.Getenv("PIPELINES_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PIPELINES_MAX_BODY_BYTES: %w", err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("PIPELINES_MAX_BODY_BYTES: must be positive, got %d", n)
		}
		c.MaxBodyBytes = n
	}

	var err error
	if c.StrictIDs, err = envBool("PIPELINES_STRICT_IDS", false); err != nil {
		return nil, err
	}
	if c.Metrics, err = envBool("PIPELINES_METRICS", true); err != nil {
		return nil, err
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrUnset returns fallback only when key is not set at all, so an empty
// value can switch a listener off.
func envOrUnset(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// splitList splits a comma-separated value, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
