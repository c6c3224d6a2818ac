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
	"database/sql"
	"fmt"
	"time"

	"github.com/teradata-labs/dealdraft/internal/sqlitedriver"
)

// SQLiteStore implements MessageStore with SQLite persistence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the message database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sqlitedriver.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates the agent_messages table
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		from_agent TEXT NOT NULL,
		to_agent TEXT NOT NULL,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		duration_us INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_agent_messages_session ON agent_messages(session_id, seq);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append implements MessageStore.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, msg AgentMessage) error {
	failed := 0
	if msg.Failed {
		failed = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_messages (id, session_id, from_agent, to_agent, query, response, failed, created_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, msg.From, msg.To, msg.Query, msg.Response, failed,
		msg.Timestamp.UnixNano(), msg.Duration.Microseconds())
	if err != nil {
		return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}
	return nil
}

// List implements MessageStore.
func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]AgentMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_agent, to_agent, query, response, failed, created_at, duration_us
		FROM agent_messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []AgentMessage
	for rows.Next() {
		var (
			msg        AgentMessage
			failed     int
			createdAt  int64
			durationUS int64
		)
		if err := rows.Scan(&msg.ID, &msg.From, &msg.To, &msg.Query, &msg.Response, &failed, &createdAt, &durationUS); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Failed = failed != 0
		msg.Timestamp = time.Unix(0, createdAt)
		msg.Duration = time.Duration(durationUS) * time.Microsecond
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Sessions implements MessageStore.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT session_id FROM agent_messages ORDER BY session_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close implements MessageStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ MessageStore = (*SQLiteStore)(nil)
