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

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/youngouk/RAG-Standard-sub002/pkg/evaluation"
	"github.com/youngouk/RAG-Standard-sub002/pkg/feedback"
	"github.com/youngouk/RAG-Standard-sub002/pkg/pipeline"
	"github.com/youngouk/RAG-Standard-sub002/pkg/session"
)

type chatRequest struct {
	Message   string       `json:"message"`
	SessionID string       `json:"session_id,omitempty"`
	Options   *chatOptions `json:"options,omitempty"`
}

type chatOptions struct {
	TopK             int   `json:"top_k,omitempty"`
	UseGraph         *bool `json:"use_graph,omitempty"`
	EnableDebugTrace bool  `json:"enable_debug_trace,omitempty"`
}

type qualityInfo struct {
	Score          float64 `json:"score"`
	Confidence     string  `json:"confidence"`
	SelfRAGApplied bool    `json:"self_rag_applied"`
	RefusalReason  string  `json:"refusal_reason,omitempty"`
}

type chatResponse struct {
	Answer          string                    `json:"answer"`
	Sources         any                       `json:"sources"`
	SessionID       string                    `json:"session_id"`
	MessageID       string                    `json:"message_id"`
	ProcessingTime  float64                   `json:"processing_time"`
	TokensUsed      int                       `json:"tokens_used"`
	Timestamp       time.Time                 `json:"timestamp"`
	ModelInfo       map[string]string         `json:"model_info"`
	CanEvaluate     bool                      `json:"can_evaluate"`
	SelfRAGMetadata *pipeline.SelfRAGMetadata `json:"self_rag_metadata,omitempty"`
	Metadata        map[string]any            `json:"metadata"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat pipeline not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	opts := pipeline.Options{}
	if req.Options != nil {
		opts.TopK = req.Options.TopK
		opts.UseGraph = req.Options.UseGraph
		opts.EnableDebugTrace = req.Options.EnableDebugTrace
	}

	resp := s.pipeline.Process(r.Context(), req.Message, req.SessionID, opts)

	meta := map[string]any{"total_time": resp.ProcessingTime.Seconds()}
	if resp.QualityScore != nil {
		meta["quality"] = qualityInfo{
			Score:          *resp.QualityScore,
			Confidence:     confidenceBand(*resp.QualityScore),
			SelfRAGApplied: resp.SelfRAGMetadata != nil,
			RefusalReason:  resp.RefusalReason,
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveChat(len(resp.Sources), resp.TokensUsed, resp.QualityScore, resp.RefusalReason)
	}

	out := chatResponse{
		Answer:          resp.Answer,
		Sources:         resp.Sources,
		SessionID:       resp.SessionID,
		MessageID:       resp.MessageID,
		ProcessingTime:  resp.ProcessingTime.Seconds(),
		TokensUsed:      resp.TokensUsed,
		Timestamp:       time.Now(),
		ModelInfo:       map[string]string{"model": resp.ModelUsed, "provider": resp.Provider},
		CanEvaluate:     len(s.evaluators) > 0,
		SelfRAGMetadata: resp.SelfRAGMetadata,
		Metadata:        meta,
	}
	if resp.DebugTrace != nil {
		out.Metadata["debug_trace"] = resp.DebugTrace
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.CreateSession(nil)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"message":    "session created",
		"timestamp":  time.Now(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	messages, total, err := s.sessions.GetChatHistory(sessionID, limit, offset)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     sessionID,
		"messages":       messages,
		"total_messages": total,
		"limit":          limit,
		"offset":         offset,
		"has_more":       offset+len(messages) < total,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.sessions.DeleteSession(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "session_id": sessionID})
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	info, err := s.sessions.GetSessionInfo(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	Query     string `json:"query,omitempty"`
	Response  string `json:"response,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.writeError(w, http.StatusServiceUnavailable, "feedback store not configured")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data := &feedback.Data{
		SessionID: req.SessionID,
		MessageID: req.MessageID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Query:     req.Query,
		Response:  req.Response,
	}
	id, err := s.feedback.Save(r.Context(), data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"feedback_id":      id,
		"golden_candidate": data.GoldenCandidate(),
		"message":          "feedback recorded",
	})
}

type evaluateRequest struct {
	Samples  []evaluation.Sample `json:"samples"`
	Provider string              `json:"provider,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Samples) < 1 || len(req.Samples) > 100 {
		s.writeError(w, http.StatusBadRequest, "samples must contain 1 to 100 entries")
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = s.defaultEval
	}
	evaluator, ok := s.evaluators[provider]
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown evaluation provider: "+provider)
		return
	}
	if !evaluator.IsAvailable() {
		s.writeError(w, http.StatusServiceUnavailable, "evaluation provider unavailable: "+provider)
		return
	}

	results := evaluator.BatchEvaluate(r.Context(), req.Samples)

	summary := map[string]float64{
		"avg_faithfulness": 0,
		"avg_relevance":    0,
		"avg_overall":      0,
		"min_overall":      1,
		"max_overall":      0,
	}
	for _, res := range results {
		summary["avg_faithfulness"] += res.Faithfulness
		summary["avg_relevance"] += res.Relevance
		summary["avg_overall"] += res.Overall
		if res.Overall < summary["min_overall"] {
			summary["min_overall"] = res.Overall
		}
		if res.Overall > summary["max_overall"] {
			summary["max_overall"] = res.Overall
		}
	}
	n := float64(len(results))
	summary["avg_faithfulness"] /= n
	summary["avg_relevance"] /= n
	summary["avg_overall"] /= n

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"results":      results,
		"summary":      summary,
		"provider":     provider,
		"sample_count": len(results),
		"message":      "evaluation complete",
	})
}

func (s *Server) handleEvaluateProviders(w http.ResponseWriter, r *http.Request) {
	providers := make([]string, 0, len(s.evaluators))
	descriptions := make(map[string]string, len(s.evaluators))
	for name := range s.evaluators {
		providers = append(providers, name)
		switch name {
		case "internal":
			descriptions[name] = "LLM-as-judge scoring faithfulness and relevance"
		case "ragas":
			descriptions[name] = "batch scoring through the ragas sidecar"
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"providers":   providers,
		"default":     s.defaultEval,
		"description": descriptions,
	})
}

func (s *Server) handleDebugTrace(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messageID := chi.URLParam(r, "messageID")

	trace, ok := s.sessions.GetDebugTrace(sessionID, messageID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "debug trace not found")
		return
	}
	s.writeJSON(w, http.StatusOK, trace)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"timestamp": time.Now()}
	if s.retrieval != nil {
		out["retrieval"] = s.retrieval.Stats()
		out["cache"] = s.retrieval.CacheStats()
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.retrieval == nil {
		s.writeError(w, http.StatusServiceUnavailable, "retrieval not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.retrieval.CacheStats())
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
