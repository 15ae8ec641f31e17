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
	"time"

	"google.golang.org/genai"

	"github.com/youngouk/RAG-Standard-sub002/pkg/config"
)

// GeminiClient implements LLM and Generator over the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a client from config.
func NewGeminiClient(cfg *config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini provider requires api_key (or GOOGLE_API_KEY)")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string { return c.model }

// Generate returns the completion for a single prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	temp := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}

// GenerateAnswer builds a grounded prompt and generates an answer.
func (c *GeminiClient) GenerateAnswer(ctx context.Context, query string, contextDocs []string, sessionContext string) (*GenerationResult, error) {
	start := time.Now()

	temp := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(groundedSystemPrompt+"\n\n"+BuildGroundedPrompt(query, contextDocs, sessionContext)),
		&genai.GenerateContentConfig{
			Temperature:     &temp,
			MaxOutputTokens: c.maxTokens,
		})
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &GenerationResult{
		Answer:         text,
		TokensUsed:     tokens,
		ModelUsed:      c.model,
		Provider:       "gemini",
		GenerationTime: time.Since(start),
	}, nil
}
