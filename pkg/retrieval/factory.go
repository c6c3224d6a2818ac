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
	"context"
	"fmt"
)

// Config selects a Retriever implementation.
type Config struct {
	Backend string // memory | sqlite
	Path    string // For sqlite
}

// New creates a Retriever based on configuration, plus a function that
// releases its resources.
func New(ctx context.Context, cfg Config) (Retriever, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryIndex(), func() error { return nil }, nil

	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		idx, err := NewSQLiteIndex(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown retrieval backend: %s (supported: memory, sqlite)", cfg.Backend)
	}
}
