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
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	rating     INTEGER NOT NULL,
	comment    TEXT,
	query      TEXT,
	response   TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
`

// SQLiteStore persists feedback to a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database at path. ":memory:"
// works for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate feedback schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save validates and inserts a record.
func (s *SQLiteStore) Save(ctx context.Context, data *Data) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	createdAt := data.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, session_id, message_id, rating, comment, query, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, data.SessionID, data.MessageID, data.Rating, data.Comment, data.Query, data.Response, createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to save feedback: %w", err)
	}
	return id, nil
}

// GetBySession returns a session's records, newest first.
func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID string, limit int) ([]Data, error) {
	query := `SELECT id, session_id, message_id, rating, comment, query, response, created_at
	          FROM feedback WHERE session_id = ? ORDER BY created_at DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var out []Data
	for rows.Next() {
		var rec Data
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.MessageID, &rec.Rating,
			&rec.Comment, &rec.Query, &rec.Response, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetStatistics aggregates over [start, end).
func (s *SQLiteStore) GetStatistics(ctx context.Context, start, end time.Time) (*Statistics, error) {
	query := `SELECT
	    COUNT(*),
	    COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0),
	    COALESCE(SUM(CASE WHEN rating = -1 THEN 1 ELSE 0 END), 0),
	    COALESCE(SUM(CASE WHEN rating = 1 AND query != '' AND response != '' THEN 1 ELSE 0 END), 0)
	  FROM feedback WHERE 1=1`
	var args []any
	if !start.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, start)
	}
	if !end.IsZero() {
		query += " AND created_at < ?"
		args = append(args, end)
	}

	stats := &Statistics{}
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&stats.Total, &stats.Positive, &stats.Negative, &stats.GoldenCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	if stats.Total > 0 {
		stats.PositiveRate = float64(stats.Positive) / float64(stats.Total)
	}
	return stats, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
