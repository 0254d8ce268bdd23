package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alfredjeanlab/pipelines/internal/config"
)

// HTTPConfig configures the HTTP transport. It is passed explicitly to
// NewHTTPHandler; nothing about the transport is process-global.
type HTTPConfig struct {
	// AuthToken enables bearer-token auth when non-empty.
	AuthToken string
	// CORS is the cross-origin policy applied to every route.
	CORS CORSConfig
	// MaxBodyBytes caps request bodies; zero means config.DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// HTTPConfigFrom builds an HTTPConfig from loaded service configuration.
func HTTPConfigFrom(cfg *config.Config) HTTPConfig {
	return HTTPConfig{
		AuthToken: cfg.AuthToken,
		CORS: CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: cfg.CORSMethods,
			AllowHeaders: cfg.CORSHeaders,
			MaxAge:       cfg.CORSMaxAge,
		},
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// Middleware runs outermost first: recovery, CORS, request ID, logging, auth.
func (s *PipelineServer) NewHTTPHandler(cfg HTTPConfig) http.Handler {
	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = config.DefaultMaxBodyBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /pipelines/parse", s.handleParsePipeline(limit))
	mux.HandleFunc("POST /v1/pipelines/parse", s.handleParsePipeline(limit))
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	h = AuthMiddleware(cfg.AuthToken, h)
	h = LoggingMiddleware(s.logger, h)
	h = RequestIDMiddleware(h)
	h = CORSMiddleware(cfg.CORS, h)
	h = RecoveryMiddleware(s.logger, h)
	return h
}

// handleParsePipeline handles POST /pipelines/parse.
// The body is a pipeline document; the response carries num_nodes, num_edges
// and is_dag.
func (s *PipelineServer) handleParsePipeline(limit int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.metrics.ObserveRejected("too_large")
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		result, err := s.parseDocument(r.Context(), body, transportHTTP)
		if err != nil {
			var ie inputError
			if errors.As(err, &ie) {
				writeError(w, http.StatusBadRequest, ie.Error())
				return
			}
			s.logger.Error("parse pipeline failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
			writeError(w, http.StatusInternalServerError, "failed to parse pipeline")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// handleHealth handles GET /v1/health.
func (s *PipelineServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
