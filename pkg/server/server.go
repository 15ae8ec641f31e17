// Copyright 2025 The ragd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the chat, feedback, admin, and health HTTP
// surface over the RAG pipeline.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/youngouk/RAG-Standard-sub002/pkg/cache"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/evaluation"
	"github.com/youngouk/RAG-Standard-sub002/pkg/feedback"
	"github.com/youngouk/RAG-Standard-sub002/pkg/observability"
	"github.com/youngouk/RAG-Standard-sub002/pkg/orchestrator"
	"github.com/youngouk/RAG-Standard-sub002/pkg/pipeline"
	"github.com/youngouk/RAG-Standard-sub002/pkg/session"
)

// ChatPipeline is the pipeline surface the server consumes.
type ChatPipeline interface {
	Process(ctx context.Context, message, sessionID string, opts pipeline.Options) *pipeline.Response
}

// RetrievalStats exposes pipeline counters for the health surface.
type RetrievalStats interface {
	Stats() orchestrator.Stats
	CacheStats() cache.Stats
}

// Options carries the server's collaborators. Feedback, Evaluators, and
// Metrics are optional.
type Options struct {
	Pipeline   ChatPipeline
	Retrieval  RetrievalStats
	Sessions   session.Store
	Feedback   feedback.Store
	Evaluators map[string]evaluation.Evaluator

	// DefaultEvaluator names the provider used when a request does not
	// pick one.
	DefaultEvaluator string

	Metrics *observability.Metrics
}

// Server is the HTTP front end.
type Server struct {
	cfg         *config.ServerConfig
	pipeline    ChatPipeline
	retrieval   RetrievalStats
	sessions    session.Store
	feedback    feedback.Store
	evaluators  map[string]evaluation.Evaluator
	defaultEval string
	metrics     *observability.Metrics
	logger      *slog.Logger

	httpServer *http.Server
}

// New wires the router.
func New(cfg *config.ServerConfig, opts Options) *Server {
	s := &Server{
		cfg:         cfg,
		pipeline:    opts.Pipeline,
		retrieval:   opts.Retrieval,
		sessions:    opts.Sessions,
		feedback:    opts.Feedback,
		evaluators:  opts.Evaluators,
		defaultEval: opts.DefaultEvaluator,
		metrics:     opts.Metrics,
		logger:      slog.Default().With("component", "server"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree. Exported so tests can drive it through
// httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(observability.HTTPMiddleware(s.metrics))
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Post("/chat", s.handleChat)
	r.Post("/chat/session", s.handleCreateSession)
	r.Get("/chat/history/{sessionID}", s.handleHistory)
	r.Delete("/chat/session/{sessionID}", s.handleDeleteSession)
	r.Get("/chat/session/{sessionID}/info", s.handleSessionInfo)
	r.Post("/chat/feedback", s.handleFeedback)

	r.Post("/admin/evaluate", s.handleEvaluate)
	r.Get("/admin/evaluate/providers", s.handleEvaluateProviders)
	r.Get("/admin/debug/session/{sessionID}/messages/{messageID}", s.handleDebugTrace)

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/ping", s.handlePing)
	r.Get("/cache-stats", s.handleCacheStats)

	return r
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}

// confidenceBand maps a quality score to the coarse confidence exposed to
// clients.
func confidenceBand(score float64) string {
	switch {
	case score >= 0.8:
		return "high"
	case score >= 0.6:
		return "medium"
	default:
		return "low"
	}
}
