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

package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAddConversationAndHistory(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	id := store.CreateSession(map[string]any{"source": "test"})
	store.AddConversation(id, "hello", "hi there", nil)
	store.AddConversation(id, "how are you", "fine", nil)

	messages, total, err := store.GetChatHistory(id, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 || len(messages) != 4 {
		t.Fatalf("expected 4 messages, got total=%d len=%d", total, len(messages))
	}
	if messages[0].Role != RoleUser || messages[1].Role != RoleAssistant {
		t.Errorf("role order wrong: %s, %s", messages[0].Role, messages[1].Role)
	}
}

func TestHistoryPaging(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	id := store.CreateSession(nil)
	for i := 0; i < 5; i++ {
		store.AddConversation(id, "u", "a", nil)
	}

	page, total, err := store.GetChatHistory(id, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 10 || len(page) != 4 {
		t.Errorf("expected page of 4 from 10, got total=%d len=%d", total, len(page))
	}

	tail, _, _ := store.GetChatHistory(id, 4, 8)
	if len(tail) != 2 {
		t.Errorf("expected trailing page of 2, got %d", len(tail))
	}

	past, _, _ := store.GetChatHistory(id, 4, 100)
	if len(past) != 0 {
		t.Errorf("offset past end must be empty, got %d", len(past))
	}
}

func TestContextStringRecentTurns(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	id := store.CreateSession(nil)
	for i := 0; i < 10; i++ {
		store.AddConversation(id, "question", "answer", nil)
	}

	ctx := store.GetContextString(id)
	if ctx == "" {
		t.Fatal("expected a context string")
	}
	lines := strings.Count(ctx, "\n")
	if lines > 10 {
		t.Errorf("context must cap at recent turns, got %d lines", lines)
	}
	if !strings.Contains(ctx, "user: question") {
		t.Errorf("context format wrong: %q", ctx)
	}
	if store.GetContextString("missing") != "" {
		t.Error("unknown session must yield empty context")
	}
}

func TestImplicitSessionCreation(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	msgID := store.AddConversation("caller-chosen-id", "u", "a", nil)
	if msgID == "" {
		t.Fatal("expected an assistant message id")
	}
	if _, err := store.GetSessionInfo("caller-chosen-id"); err != nil {
		t.Errorf("session should exist after implicit creation: %v", err)
	}
}

func TestDebugTraceRoundTrip(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	id := store.CreateSession(nil)
	msgID := store.AddConversation(id, "u", "a", nil)
	store.SaveDebugTrace(id, msgID, map[string]any{"stage": "retrieval"})

	trace, ok := store.GetDebugTrace(id, msgID)
	if !ok {
		t.Fatal("expected trace")
	}
	if trace.(map[string]any)["stage"] != "retrieval" {
		t.Errorf("trace content lost: %v", trace)
	}
	if _, ok := store.GetDebugTrace(id, "other"); ok {
		t.Error("unknown message id must miss")
	}
}

func TestDeleteSession(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	id := store.CreateSession(nil)
	if err := store.DeleteSession(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := store.GetChatHistory(id, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSession(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete must report not found, got %v", err)
	}
}

func TestSessionInfoCounts(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	id := store.CreateSession(map[string]any{"channel": "web"})
	store.AddConversation(id, "u", "a", nil)

	info, err := store.GetSessionInfo(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.MessageCount != 2 {
		t.Errorf("expected 2 messages, got %d", info.MessageCount)
	}
	if info.Metadata["channel"] != "web" {
		t.Errorf("metadata lost: %v", info.Metadata)
	}
}
