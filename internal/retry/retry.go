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

// Package retry implements exponential backoff for transient backend
// errors. Only the graph database and the distributed cache retry; LLM,
// reranker, and retriever failures degrade without retrying.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config controls backoff behavior. Attempt n waits Delay * 2^n plus
// jitter.
type Config struct {
	MaxAttempts int
	Delay       time.Duration

	// RetryableSubstrings classifies errors as transient by message
	// content. Empty means every error is retryable.
	RetryableSubstrings []string
}

// DefaultConfig retries 3 times starting from one second.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       time.Second,
		RetryableSubstrings: []string{
			"timeout",
			"connection refused",
			"connection reset",
			"temporarily unavailable",
			"service unavailable",
			"too many requests",
		},
	}
}

// Retryable reports whether err matches the transient classification.
func (c Config) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if len(c.RetryableSubstrings) == 0 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range c.RetryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Do runs fn up to MaxAttempts times with exponential backoff. It returns
// the first permanent error immediately, and the last error when attempts
// are exhausted. Context cancellation aborts the wait.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := cfg.Delay * (1 << (attempt - 1))
			jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !cfg.Retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
