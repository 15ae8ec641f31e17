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

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

// OpenAIClient implements LLM, Generator, and Embedder over the OpenAI API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	embedModel  string
	dimension   int
	temperature float32
	maxTokens   int
}

var (
	_ Generator = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a client from config.
func NewOpenAIClient(cfg *config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires api_key (or OPENAI_API_KEY)")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		embedModel:  cfg.Embedder.Model,
		dimension:   cfg.Embedder.Dimension,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.model }

// Generate returns the completion for a single user prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateAnswer builds a grounded prompt and generates an answer.
func (c *OpenAIClient) GenerateAnswer(ctx context.Context, query string, contextDocs []string, sessionContext string) (*GenerationResult, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: groundedSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildGroundedPrompt(query, contextDocs, sessionContext)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &GenerationResult{
		Answer:         resp.Choices[0].Message.Content,
		TokensUsed:     resp.Usage.TotalTokens,
		ModelUsed:      c.model,
		Provider:       "openai",
		GenerationTime: time.Since(start),
	}, nil
}

// EmbedQuery embeds a single query string.
func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of texts in one call.
func (c *OpenAIClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.embedModel),
		Dimensions: c.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimension returns the embedding dimensionality.
func (c *OpenAIClient) Dimension() int { return c.dimension }

const groundedSystemPrompt = "You are a helpful assistant. Answer strictly from the provided context documents. If the context does not contain the answer, say so."

// BuildGroundedPrompt assembles the user prompt for grounded generation.
func BuildGroundedPrompt(query string, contextDocs []string, sessionContext string) string {
	var b strings.Builder
	if sessionContext != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(sessionContext)
		b.WriteString("\n\n")
	}
	if len(contextDocs) == 0 {
		b.WriteString("No context documents were retrieved for this question.\n\n")
	} else {
		b.WriteString("Context documents:\n")
		for i, doc := range contextDocs {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, doc)
		}
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
