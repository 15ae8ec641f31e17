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

// Package session keeps per-conversation state: message history, the
// context string fed to generation, and debug traces. The in-memory store
// expires idle sessions on a background sweep.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = fmt.Errorf("session not found")

// Message is one conversation turn.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Info is a session summary.
type Info struct {
	SessionID    string         `json:"session_id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
	MessageCount int            `json:"message_count"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Store is the session surface consumed by the pipeline and the HTTP
// layer.
type Store interface {
	CreateSession(meta map[string]any) string

	// GetChatHistory returns a page of messages plus the total count.
	// limit <= 0 returns everything from offset.
	GetChatHistory(sessionID string, limit, offset int) ([]Message, int, error)

	// GetContextString renders recent turns into the prompt context fed
	// to generation. Empty for unknown sessions.
	GetContextString(sessionID string) string

	// AddConversation appends a user/assistant turn pair, creating the
	// session when needed, and returns the assistant message id.
	AddConversation(sessionID, userMsg, assistantMsg string, meta map[string]any) string

	// SaveDebugTrace attaches a trace to a message.
	SaveDebugTrace(sessionID, messageID string, trace any)

	// GetDebugTrace returns the trace for a message, or false.
	GetDebugTrace(sessionID, messageID string) (any, bool)

	GetSessionInfo(sessionID string) (*Info, error)
	DeleteSession(sessionID string) error
	Close()
}

type record struct {
	info     Info
	messages []Message
	traces   map[string]any
}

// MemoryStore is the single-process implementation. Sessions idle past ttl
// are dropped by a background sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*record
	ttl      time.Duration

	// contextTurns caps how many recent turns feed the context string.
	contextTurns int

	done chan struct{}
	once sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds a store with the given idle TTL. ttl <= 0 disables
// expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions:     make(map[string]*record),
		ttl:          ttl,
		contextTurns: 5,
		done:         make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

// CreateSession allocates a new session id.
func (s *MemoryStore) CreateSession(meta map[string]any) string {
	id := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &record{
		info:   Info{SessionID: id, CreatedAt: now, LastActiveAt: now, Metadata: meta},
		traces: make(map[string]any),
	}
	return id
}

// GetChatHistory pages through a session's messages.
func (s *MemoryStore) GetChatHistory(sessionID string, limit, offset int) ([]Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, 0, ErrNotFound
	}

	total := len(rec.messages)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Message{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]Message, end-offset)
	copy(out, rec.messages[offset:end])
	return out, total, nil
}

// GetContextString renders the most recent turns as "role: content" lines.
func (s *MemoryStore) GetContextString(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok || len(rec.messages) == 0 {
		return ""
	}

	start := 0
	if max := s.contextTurns * 2; len(rec.messages) > max {
		start = len(rec.messages) - max
	}

	var b strings.Builder
	for _, msg := range rec.messages[start:] {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	return b.String()
}

// AddConversation appends one exchange. Unknown session ids are created
// implicitly so callers can bring their own ids.
func (s *MemoryStore) AddConversation(sessionID, userMsg, assistantMsg string, meta map[string]any) string {
	now := time.Now()
	assistantID := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		rec = &record{
			info:   Info{SessionID: sessionID, CreatedAt: now, Metadata: nil},
			traces: make(map[string]any),
		}
		s.sessions[sessionID] = rec
	}

	rec.messages = append(rec.messages,
		Message{ID: uuid.NewString(), Role: RoleUser, Content: userMsg, Timestamp: now},
		Message{ID: assistantID, Role: RoleAssistant, Content: assistantMsg, Timestamp: now, Metadata: meta},
	)
	rec.info.LastActiveAt = now
	rec.info.MessageCount = len(rec.messages)
	return assistantID
}

// SaveDebugTrace attaches a trace to a message id.
func (s *MemoryStore) SaveDebugTrace(sessionID, messageID string, trace any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[sessionID]; ok {
		rec.traces[messageID] = trace
	}
}

// GetDebugTrace looks a trace up by message id.
func (s *MemoryStore) GetDebugTrace(sessionID, messageID string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	trace, ok := rec.traces[messageID]
	return trace, ok
}

// GetSessionInfo returns the session summary.
func (s *MemoryStore) GetSessionInfo(sessionID string) (*Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	info := rec.info
	return &info, nil
}

// DeleteSession drops a session and its traces.
func (s *MemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Close stops the expiry sweep.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, rec := range s.sessions {
				if now.Sub(rec.info.LastActiveAt) > s.ttl {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
