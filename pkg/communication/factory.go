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
)

// StoreConfig selects the bus audit store.
type StoreConfig struct {
	Backend string // none | memory | sqlite
	Path    string // For sqlite
}

// NewMessageStoreFromConfig creates a MessageStore based on configuration.
// The "none" backend (or an empty one) returns a nil store, which the bus
// treats as no persistence.
func NewMessageStoreFromConfig(ctx context.Context, cfg StoreConfig) (MessageStore, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil

	case "memory":
		return NewMemoryStore(), nil

	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite message store requires a path")
		}
		return NewSQLiteStore(ctx, cfg.Path)

	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: none, memory, sqlite)", cfg.Backend)
	}
}
