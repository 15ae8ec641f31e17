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

package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps feedback in process memory. Suitable for tests and
// single-instance deployments without persistence requirements.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Data
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save validates and appends a record.
func (s *MemoryStore) Save(ctx context.Context, data *Data) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}

	stored := *data
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.records = append(s.records, stored)
	s.mu.Unlock()
	return stored.ID, nil
}

// GetBySession returns a session's records, newest first.
func (s *MemoryStore) GetBySession(ctx context.Context, sessionID string, limit int) ([]Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Data
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].SessionID != sessionID {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetStatistics aggregates over [start, end).
func (s *MemoryStore) GetStatistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{}
	for _, rec := range s.records {
		if !start.IsZero() && rec.CreatedAt.Before(start) {
			continue
		}
		if !end.IsZero() && !rec.CreatedAt.Before(end) {
			continue
		}
		stats.Total++
		if rec.Rating == RatingUp {
			stats.Positive++
		} else {
			stats.Negative++
		}
		if rec.GoldenCandidate() {
			stats.GoldenCandidates++
		}
	}
	if stats.Total > 0 {
		stats.PositiveRate = float64(stats.Positive) / float64(stats.Total)
	}
	return stats, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
