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

package rerank

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/youngouk/RAG-Standard-sub002/internal/httpclient"
	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
	"github.com/youngouk/RAG-Standard-sub002/pkg/llm"
	"github.com/youngouk/RAG-Standard-sub002/pkg/search"
)

const defaultJinaEndpoint = "https://api.jina.ai/v1/rerank"

// JinaReranker covers both the cross-encoder and the late-interaction
// (ColBERT) hosted models; the two differ only in model name. Both are
// deterministic, so results are cacheable.
type JinaReranker struct {
	client   *httpclient.Client
	endpoint string
	model    string
	name     string
	logger   *slog.Logger
	stats    statsTracker
}

var _ Reranker = (*JinaReranker)(nil)

// NewJinaReranker builds the cross-encoder variant.
func NewJinaReranker(cfg *config.APIRerankerConfig) *JinaReranker {
	return newJinaReranker(cfg, "jina")
}

// NewJinaColbertReranker builds the late-interaction variant.
func NewJinaColbertReranker(cfg *config.APIRerankerConfig) *JinaReranker {
	return newJinaReranker(cfg, "jina-colbert")
}

func newJinaReranker(cfg *config.APIRerankerConfig, name string) *JinaReranker {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("JINA_API_KEY")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultJinaEndpoint
	}

	return &JinaReranker{
		client: httpclient.New(
			httpclient.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
			httpclient.WithHeader("Authorization", "Bearer "+apiKey),
		),
		endpoint: endpoint,
		model:    cfg.Model,
		name:     name,
		logger:   slog.Default().With("component", "reranker", "provider", name),
	}
}

// Name returns the provider name.
func (r *JinaReranker) Name() string { return r.name }

// SupportsCaching is true: the API is deterministic for fixed inputs.
func (r *JinaReranker) SupportsCaching() bool { return true }

// Stats returns a counter snapshot.
func (r *JinaReranker) Stats() Stats { return r.stats.snapshot() }

type jinaRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type jinaResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank sends the document texts and reorders by the returned relevance.
func (r *JinaReranker) Rerank(ctx context.Context, query string, results []search.Result, topN int) []search.Result {
	start := time.Now()
	if len(results) == 0 {
		return results
	}
	if topN <= 0 || topN > len(results) {
		topN = len(results)
	}

	docs := make([]string, len(results))
	for i, res := range results {
		docs[i] = res.Content
	}

	var resp jinaResponse
	err := r.client.PostJSON(ctx, r.endpoint, jinaRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	}, &resp)
	if err != nil || len(resp.Results) == 0 {
		r.logger.Warn("rerank failed, keeping retrieval order", "error", err)
		r.stats.record(start, false)
		return fallback(results, topN)
	}

	out := make([]search.Result, 0, topN)
	for _, hit := range resp.Results {
		if hit.Index < 0 || hit.Index >= len(results) {
			continue
		}
		res := results[hit.Index].Clone()
		res.SetMeta(search.MetaOriginalScore, res.Score)
		res.SetMeta(search.MetaRerankMethod, r.name)
		res.Score = llm.Clamp01(hit.RelevanceScore)
		out = append(out, res)
	}
	if len(out) == 0 {
		r.stats.record(start, false)
		return fallback(results, topN)
	}

	search.SortByScore(out)
	r.stats.record(start, true)
	return search.Truncate(out, topN)
}

// Close releases the HTTP pool.
func (r *JinaReranker) Close() {
	r.client.Close()
}
