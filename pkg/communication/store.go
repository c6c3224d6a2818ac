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

import "context"

// MessageStore persists bus exchanges for audit. Implementations must be
// safe for concurrent use by multiple goroutines.
type MessageStore interface {
	// Append records msg under sessionID. Messages are never updated.
	Append(ctx context.Context, sessionID string, msg AgentMessage) error

	// List returns the messages of a session in append order.
	List(ctx context.Context, sessionID string) ([]AgentMessage, error)

	// Sessions returns every session ID with at least one message.
	Sessions(ctx context.Context) ([]string, error)

	// Close releases store resources.
	Close() error
}
