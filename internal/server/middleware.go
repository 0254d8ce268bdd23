package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/pipelines/internal/idgen"
)

// RequestIDHeader carries the request ID on HTTP requests and responses.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// newRequestID keeps a well-formed caller-supplied ID or generates one.
func newRequestID(supplied string) string {
	if idgen.Valid(supplied) {
		return supplied
	}
	id, err := idgen.RequestID()
	if err != nil {
		slog.Warn("failed to generate request id", "error", err)
		return ""
	}
	return id
}

// RequestIDMiddleware assigns every request an ID, echoes it in the
// X-Request-ID response header and stores it in the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := newRequestID(r.Header.Get(RequestIDHeader)); id != "" {
			w.Header().Set(RequestIDHeader, id)
			r = r.WithContext(WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// LoggingMiddleware logs the method, path, status and duration of every request.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestIDFromContext(r.Context()),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Error("http request completed", attrs...)
		} else {
			logger.Info("http request completed", attrs...)
		}
	})
}

// RecoveryMiddleware catches panics in downstream handlers, logs the stack
// trace, and returns a 500 instead of crashing the server.
func RecoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				logger.Error("panic recovered in HTTP handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprintf("%v", rv),
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware wraps an http.Handler and checks the Authorization header for
// a valid Bearer token. When token is empty, auth is disabled and all requests
// pass through. GET /v1/health and OPTIONS requests are always exempt.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions ||
			(r.Method == http.MethodGet && r.URL.Path == "/v1/health") {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}

		provided := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CORSConfig is the cross-origin policy for the HTTP transport. An empty
// list allows any value, as does a list containing "*".
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	// MaxAge is how long browsers may cache a preflight; zero omits the header.
	MaxAge time.Duration
}

// DefaultCORSConfig allows any origin, method and header.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"*"},
		AllowHeaders: []string{"*"},
		MaxAge:       10 * time.Minute,
	}
}

// advertisedMethods is sent in preflight responses when any method is allowed.
var advertisedMethods = []string{
	http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions,
	http.MethodPatch, http.MethodPost, http.MethodPut,
}

// corsPolicy is a CORSConfig compiled for lookups.
type corsPolicy struct {
	anyOrigin bool
	origins   map[string]bool

	anyMethod bool
	methods   []string
	methodSet map[string]bool

	anyHeader bool
	headers   []string
	headerSet map[string]bool

	maxAge string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		anyOrigin: isWildcard(cfg.AllowOrigins),
		origins:   make(map[string]bool),
		anyMethod: isWildcard(cfg.AllowMethods),
		methodSet: make(map[string]bool),
		anyHeader: isWildcard(cfg.AllowHeaders),
		headerSet: make(map[string]bool),
	}
	for _, o := range cfg.AllowOrigins {
		p.origins[o] = true
	}
	if p.anyMethod {
		p.methods = advertisedMethods
	} else {
		for _, m := range cfg.AllowMethods {
			m = strings.ToUpper(m)
			p.methods = append(p.methods, m)
			p.methodSet[m] = true
		}
	}
	for _, h := range cfg.AllowHeaders {
		p.headers = append(p.headers, h)
		p.headerSet[strings.ToLower(h)] = true
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge / time.Second))
	}
	return p
}

func isWildcard(list []string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == "*" {
			return true
		}
	}
	return false
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin.
func (p *corsPolicy) allowOrigin(origin string) (string, bool) {
	if p.anyOrigin {
		return "*", true
	}
	if p.origins[origin] {
		return origin, true
	}
	return "", false
}

// preflight answers an OPTIONS preflight request. It never calls the
// downstream handler.
func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	if !p.anyOrigin {
		h.Add("Vary", "Origin")
	}

	allow, ok := p.allowOrigin(origin)
	if !ok {
		writeError(w, http.StatusBadRequest, "disallowed CORS origin")
		return
	}

	method := strings.ToUpper(r.Header.Get("Access-Control-Request-Method"))
	if !p.anyMethod && !p.methodSet[method] {
		writeError(w, http.StatusBadRequest, "disallowed CORS method")
		return
	}

	requested := r.Header.Get("Access-Control-Request-Headers")
	if !p.anyHeader {
		for _, name := range strings.Split(requested, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" && !p.headerSet[name] {
				writeError(w, http.StatusBadRequest, "disallowed CORS headers")
				return
			}
		}
	}

	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", strings.Join(p.methods, ", "))
	if p.anyHeader {
		if requested != "" {
			h.Set("Access-Control-Allow-Headers", requested)
		}
	} else if len(p.headers) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(p.headers, ", "))
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CORSMiddleware applies cfg to every request. Preflight requests are
// answered directly; other cross-origin requests get the allow-origin header
// and continue downstream.
func CORSMiddleware(cfg CORSConfig, next http.Handler) http.Handler {
	p := newCORSPolicy(cfg)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			p.preflight(w, r, origin)
			return
		}

		if !p.anyOrigin {
			w.Header().Add("Vary", "Origin")
		}
		if allow, ok := p.allowOrigin(origin); ok {
			w.Header().Set("Access-Control-Allow-Origin", allow)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		}
		next.ServeHTTP(w, r)
	})
}
