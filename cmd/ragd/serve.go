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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/pkg/cache"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/evaluation"
	"github.com/youngouk/RAG-Standard-sub002/pkg/expansion"
	"github.com/youngouk/RAG-Standard-sub002/pkg/feedback"
	"github.com/youngouk/RAG-Standard-sub002/pkg/graph"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/observability"
	"github.com/youngouk/RAG-Standard-sub002/pkg/orchestrator"
	"github.com/youngouk/RAG-Standard-sub002/pkg/pipeline"
	"github.com/youngouk/RAG-Standard-sub002/pkg/rerank"
	"github.com/youngouk/RAG-Standard-sub002/pkg/server"
	"github.com/youngouk/RAG-Standard-sub002/pkg/session"
	"github.com/youngouk/RAG-Standard-sub002/pkg/vector"
)

const (
	sessionTTL      = 30 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port       int    `help:"Port to listen on (overrides config)."`
	FeedbackDB string `name:"feedback-db" help:"SQLite path for feedback persistence (empty = in-memory)." type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	embedder, err := llm.NewEmbedder(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	generator, err := llm.NewGenerator(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	retriever, err := vector.NewRetrieverFromConfig(&cfg.VectorStore, &cfg.Retrieval, embedder)
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}
	defer retriever.Close()

	cacheMgr, err := cache.New(&cfg.Cache, embedder)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	if cacheMgr != nil {
		defer cacheMgr.Close()
	}

	graphStore, err := graph.New(&cfg.GraphRAG, embedder)
	if err != nil {
		return fmt.Errorf("failed to create graph store: %w", err)
	}
	if graphStore != nil {
		defer graphStore.Close(context.Background())
	}

	reranker, err := rerank.New(&cfg.Reranking, &cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create reranker: %w", err)
	}

	var expander expansion.Engine
	if cfg.QueryExpansion.Enabled {
		expanderCfg := cfg.LLM
		expanderCfg.Model = cfg.QueryExpansion.Model
		expanderCfg.SetDefaults()
		model, err := llm.NewGenerator(&expanderCfg)
		if err != nil {
			return fmt.Errorf("failed to create expansion model: %w", err)
		}
		expander = expansion.NewLLMEngine(model, &cfg.QueryExpansion)
	}

	orch := orchestrator.New(cfg, orchestrator.Options{
		Retriever:  retriever,
		Reranker:   reranker,
		Cache:      cacheMgr,
		Expander:   expander,
		GraphStore: graphStore,
	})

	evaluator, err := evaluation.New(&cfg.Evaluation, &cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create evaluator: %w", err)
	}
	if closer, ok := evaluator.(io.Closer); ok {
		defer closer.Close()
	}

	sessions := session.NewMemoryStore(sessionTTL)
	defer sessions.Close()

	var feedbackStore feedback.Store
	if c.FeedbackDB != "" {
		feedbackStore, err = feedback.NewSQLiteStore(c.FeedbackDB)
		if err != nil {
			return fmt.Errorf("failed to open feedback store: %w", err)
		}
	} else {
		feedbackStore = feedback.NewMemoryStore()
	}
	defer feedbackStore.Close()

	ragPipeline := pipeline.New(&cfg.SelfRAG, orch, generator, evaluator, sessions)

	evaluators := map[string]evaluation.Evaluator{}
	if evaluator != nil {
		evaluators[evaluator.Name()] = evaluator
	}

	srv := server.New(&cfg.Server, server.Options{
		Pipeline:         ragPipeline,
		Retrieval:        orch,
		Sessions:         sessions,
		Feedback:         feedbackStore,
		Evaluators:       evaluators,
		DefaultEvaluator: cfg.Evaluation.Provider,
		Metrics:          observability.NewMetrics(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	slog.Info("ragd ready",
		"addr", cfg.Server.Address(),
		"vector_store", cfg.VectorStore.Provider,
		"graph_rag", cfg.GraphRAG.Enabled,
		"self_rag", cfg.SelfRAG.Enabled,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
