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

// Package feedback persists user ratings on answers. Positive ratings
// carrying both the query and the response are golden-dataset candidates.
package feedback

import (
	"context"
	"fmt"
	"time"
)

// Ratings. Zero is invalid; there is no neutral feedback.
const (
	RatingDown = -1
	RatingUp   = +1
)

// ErrInvalidRating rejects ratings outside {-1, +1}.
var ErrInvalidRating = fmt.Errorf("rating must be -1 or +1")

// Data is one feedback record.
type Data struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Query     string    `json:"query,omitempty"`
	Response  string    `json:"response,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate rejects malformed records.
func (d *Data) Validate() error {
	if d.Rating != RatingDown && d.Rating != RatingUp {
		return fmt.Errorf("%w, got %d", ErrInvalidRating, d.Rating)
	}
	if d.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if d.MessageID == "" {
		return fmt.Errorf("message_id is required")
	}
	return nil
}

// GoldenCandidate reports whether the record qualifies for the golden
// dataset: a positive rating with both query and response captured.
func (d *Data) GoldenCandidate() bool {
	return d.Rating == RatingUp && d.Query != "" && d.Response != ""
}

// Statistics is an aggregate over a time window.
type Statistics struct {
	Total            int     `json:"total"`
	Positive         int     `json:"positive"`
	Negative         int     `json:"negative"`
	PositiveRate     float64 `json:"positive_rate"`
	GoldenCandidates int     `json:"golden_candidates"`
}

// Store persists feedback.
type Store interface {
	// Save validates and stores a record, returning its id.
	Save(ctx context.Context, data *Data) (string, error)

	// GetBySession returns the newest records for a session, newest
	// first. limit <= 0 returns all.
	GetBySession(ctx context.Context, sessionID string, limit int) ([]Data, error)

	// GetStatistics aggregates over [start, end); zero times are open.
	GetStatistics(ctx context.Context, start, end time.Time) (*Statistics, error)

	Close() error
}
