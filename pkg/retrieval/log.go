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

package retrieval

import (
	"sync"

	"github.com/teradata-labs/dealdraft/pkg/session"
)

// Log is an append-only record of searches. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []session.RetrievalQuery
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append records q.
func (l *Log) Append(q session.RetrievalQuery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, q)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Since returns a copy of the entries from index n on.
func (l *Log) Since(n int) []session.RetrievalQuery {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil
	}
	out := make([]session.RetrievalQuery, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}

// Reset clears the log.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
