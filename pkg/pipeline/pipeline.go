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

// Package pipeline runs one chat request end to end: session context,
// retrieval, generation, and the Self-RAG evaluate/regenerate/refuse loop.
//
// The pipeline is a state machine. Any state can fall through to DONE
// carrying whatever partial result exists; external calls sit behind
// circuit breakers so repeated failure degrades instead of cascading.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/evaluation"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/orchestrator"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
	"github.com/youngouk/RAG-Standard-sub002/pkg/session"
)

// Pipeline states.
const (
	StateIdle       = "idle"
	StateRouting    = "routing"
	StateExpanding  = "expanding"
	StateRetrieving = "retrieving"
	StateGenerating = "generating"
	StateEvaluating = "evaluating"
	StateAccept     = "accept"
	StateRegenerate = "regenerate"
	StateRefuse     = "refuse"
	StateDone       = "done"
)

// Canonical degraded answers.
const (
	answerNoContext = "I could not find relevant context for this question, so I cannot give a grounded answer."
	answerDegraded  = "The answer service is temporarily unavailable. Please try again shortly."
	answerRefused   = "I am not confident enough in the available information to answer this reliably."
)

// Refusal reasons exposed to callers.
const (
	RefusalLowQuality     = "low_quality"
	RefusalNoContext      = "no_context"
	RefusalGenerationDown = "generation_unavailable"
)

// Retriever is the orchestrator surface the pipeline consumes.
type Retriever interface {
	SearchAndRerank(ctx context.Context, req orchestrator.Request) []search.Result
}

// Options tunes one request.
type Options struct {
	TopK             int
	UseGraph         *bool
	EnableDebugTrace bool
}

// SelfRAGMetadata records the evaluate/regenerate loop outcome.
type SelfRAGMetadata struct {
	Applied        bool    `json:"applied"`
	InitialQuality float64 `json:"initial_quality"`
	Regenerated    bool    `json:"regenerated"`
	FinalQuality   float64 `json:"final_quality"`
	Refused        bool    `json:"refused"`
}

// DebugTrace is collected only when a request asks for it.
type DebugTrace struct {
	OriginalQuery  string           `json:"original_query"`
	States         []string         `json:"states"`
	Documents      []search.Result  `json:"documents"`
	Evaluation     *SelfRAGMetadata `json:"evaluation,omitempty"`
	SessionContext string           `json:"session_context,omitempty"`
}

// Response is the end-to-end result of one chat request.
type Response struct {
	Answer          string           `json:"answer"`
	Sources         []search.Result  `json:"sources"`
	SessionID       string           `json:"session_id"`
	MessageID       string           `json:"message_id"`
	TokensUsed      int              `json:"tokens_used"`
	ModelUsed       string           `json:"model_used"`
	Provider        string           `json:"provider"`
	QualityScore    *float64         `json:"quality_score,omitempty"`
	RefusalReason   string           `json:"refusal_reason,omitempty"`
	SelfRAGMetadata *SelfRAGMetadata `json:"self_rag_metadata,omitempty"`
	DebugTrace      *DebugTrace      `json:"debug_trace,omitempty"`
	ProcessingTime  time.Duration    `json:"processing_time"`
}

// RAGPipeline wires retrieval, generation, evaluation, and sessions.
type RAGPipeline struct {
	retriever Retriever
	generator llm.Generator
	evaluator evaluation.Evaluator
	sessions  session.Store

	selfRAGEnabled      bool
	acceptThreshold     float64
	regenerateThreshold float64

	genBreaker  *gobreaker.CircuitBreaker
	evalBreaker *gobreaker.CircuitBreaker

	logger *slog.Logger
}

// New builds the pipeline. evaluator may be nil; Self-RAG then never runs.
func New(cfg *config.SelfRAGConfig, retriever Retriever, generator llm.Generator, evaluator evaluation.Evaluator, sessions session.Store) *RAGPipeline {
	return &RAGPipeline{
		retriever:           retriever,
		generator:           generator,
		evaluator:           evaluator,
		sessions:            sessions,
		selfRAGEnabled:      cfg.Enabled,
		acceptThreshold:     cfg.AcceptThreshold,
		regenerateThreshold: cfg.RegenerateThreshold,
		genBreaker:          newBreaker("generation"),
		evalBreaker:         newBreaker("evaluation"),
		logger:              slog.Default().With("component", "pipeline"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Process runs one chat request.
func (p *RAGPipeline) Process(ctx context.Context, message, sessionID string, opts Options) *Response {
	start := time.Now()

	var trace *DebugTrace
	if opts.EnableDebugTrace {
		trace = &DebugTrace{OriginalQuery: message, States: []string{StateIdle}}
	}
	enter := func(state string) {
		if trace != nil {
			trace.States = append(trace.States, state)
		}
	}

	if sessionID == "" {
		sessionID = p.sessions.CreateSession(nil)
	}
	sessionContext := p.sessions.GetContextString(sessionID)
	if trace != nil {
		trace.SessionContext = sessionContext
	}

	enter(StateRouting)
	enter(StateRetrieving)
	sources := p.retriever.SearchAndRerank(ctx, orchestrator.Request{
		Query:    message,
		TopK:     opts.TopK,
		UseGraph: opts.UseGraph,
	})
	if trace != nil {
		trace.Documents = sources
	}

	resp := &Response{
		Answer:    answerNoContext,
		Sources:   sources,
		SessionID: sessionID,
	}
	if len(sources) == 0 {
		resp.RefusalReason = RefusalNoContext
		return p.finish(resp, message, trace, start)
	}

	enter(StateGenerating)
	contextDocs := make([]string, len(sources))
	for i, src := range sources {
		contextDocs[i] = src.Content
	}
	gen, err := p.generate(ctx, message, contextDocs, sessionContext)
	if err != nil {
		p.logger.Error("generation failed, returning degraded answer", "error", err)
		resp.Answer = answerDegraded
		resp.RefusalReason = RefusalGenerationDown
		return p.finish(resp, message, trace, start)
	}
	resp.Answer = gen.Answer
	resp.TokensUsed = gen.TokensUsed
	resp.ModelUsed = gen.ModelUsed
	resp.Provider = gen.Provider

	if p.selfRAGEnabled && p.evaluator != nil {
		enter(StateEvaluating)
		p.selfRAG(ctx, message, contextDocs, sessionContext, resp, enter)
	}

	return p.finish(resp, message, trace, start)
}

// selfRAG runs the evaluate/regenerate/refuse loop, mutating resp.
func (p *RAGPipeline) selfRAG(ctx context.Context, query string, contextDocs []string, sessionContext string, resp *Response, enter func(string)) {
	meta := &SelfRAGMetadata{Applied: true}
	resp.SelfRAGMetadata = meta

	initial, err := p.evaluate(ctx, query, resp.Answer, contextDocs)
	if err != nil {
		p.logger.Warn("evaluation unavailable, accepting answer unevaluated", "error", err)
		meta.Applied = false
		resp.SelfRAGMetadata = nil
		return
	}
	meta.InitialQuality = initial.Overall
	meta.FinalQuality = initial.Overall
	resp.QualityScore = &meta.FinalQuality

	switch {
	case initial.Overall >= p.acceptThreshold:
		enter(StateAccept)

	case initial.Overall >= p.regenerateThreshold:
		enter(StateRegenerate)
		regenerated, err := p.generate(ctx, query, contextDocs,
			sessionContext+"\nGround every statement strictly in the provided context. Do not speculate.")
		if err != nil {
			p.logger.Warn("regeneration failed, keeping first answer", "error", err)
			enter(StateAccept)
			return
		}

		enter(StateEvaluating)
		second, err := p.evaluate(ctx, query, regenerated.Answer, contextDocs)
		if err != nil || second.Overall >= initial.Overall {
			// Keep the regenerated answer unless it scored worse.
			if err == nil {
				meta.FinalQuality = second.Overall
			}
			meta.Regenerated = true
			resp.Answer = regenerated.Answer
			resp.TokensUsed += regenerated.TokensUsed
		}
		enter(StateAccept)

	default:
		enter(StateRefuse)
		meta.Refused = true
		resp.Answer = answerRefused
		resp.RefusalReason = RefusalLowQuality
	}
}

func (p *RAGPipeline) generate(ctx context.Context, query string, contextDocs []string, sessionContext string) (*llm.GenerationResult, error) {
	out, err := p.genBreaker.Execute(func() (any, error) {
		return p.generator.GenerateAnswer(ctx, query, contextDocs, sessionContext)
	})
	if err != nil {
		return nil, err
	}
	return out.(*llm.GenerationResult), nil
}

func (p *RAGPipeline) evaluate(ctx context.Context, query, answer string, contextDocs []string) (*evaluation.Result, error) {
	if !p.evaluator.IsAvailable() {
		return nil, fmt.Errorf("evaluator %s unavailable", p.evaluator.Name())
	}
	out, err := p.evalBreaker.Execute(func() (any, error) {
		return p.evaluator.Evaluate(ctx, evaluation.Sample{
			Query:    query,
			Answer:   answer,
			Contexts: contextDocs,
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*evaluation.Result), nil
}

// finish records the conversation, attaches the trace, and stamps timing.
func (p *RAGPipeline) finish(resp *Response, message string, trace *DebugTrace, start time.Time) *Response {
	meta := map[string]any{"tokens_used": resp.TokensUsed, "model_used": resp.ModelUsed}
	resp.MessageID = p.sessions.AddConversation(resp.SessionID, message, resp.Answer, meta)

	if trace != nil {
		trace.States = append(trace.States, StateDone)
		trace.Evaluation = resp.SelfRAGMetadata
		resp.DebugTrace = trace
		p.sessions.SaveDebugTrace(resp.SessionID, resp.MessageID, trace)
	}

	resp.ProcessingTime = time.Since(start)
	return resp
}
