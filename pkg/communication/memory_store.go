// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package communication

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryStore implements MessageStore in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]AgentMessage
	closed   atomic.Bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]AgentMessage)}
}

// Append implements MessageStore.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg AgentMessage) error {
	if s.closed.Load() {
		return fmt.Errorf("message store is closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], msg)
	return nil
}

// List implements MessageStore.
func (s *MemoryStore) List(ctx context.Context, sessionID string) ([]AgentMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.sessions[sessionID]
	out := make([]AgentMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Sessions implements MessageStore.
func (s *MemoryStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements MessageStore.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

var _ MessageStore = (*MemoryStore)(nil)
