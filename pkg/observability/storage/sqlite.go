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

// Package storage persists observability data to SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teradata-labs/dealdraft/internal/sqlitedriver"
	"github.com/teradata-labs/dealdraft/pkg/observability"
)

// SQLiteUsageSink implements observability.UsageSink on a SQLite table.
type SQLiteUsageSink struct {
	db *sql.DB
}

// NewSQLiteUsageSink opens (or creates) the usage database at dbPath.
func NewSQLiteUsageSink(ctx context.Context, dbPath string) (*SQLiteUsageSink, error) {
	db, err := sqlitedriver.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	s := &SQLiteUsageSink{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteUsageSink) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caller TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost_usd REAL NOT NULL,
		latency_ms INTEGER NOT NULL,
		attempts INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_llm_usage_caller ON llm_usage(caller);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record inserts rec.
func (s *SQLiteUsageSink) Record(ctx context.Context, rec observability.UsageRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_usage (caller, provider, model, input_tokens, output_tokens,
			cost_usd, latency_ms, attempts, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Caller, rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.CostUSD, rec.Latency.Milliseconds(), rec.Attempts, success, rec.Error,
		rec.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// Records returns every stored record in insertion order.
func (s *SQLiteUsageSink) Records(ctx context.Context) ([]observability.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT caller, provider, model, input_tokens, output_tokens, cost_usd,
			latency_ms, attempts, success, error, created_at
		FROM llm_usage ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var out []observability.UsageRecord
	for rows.Next() {
		var (
			rec       observability.UsageRecord
			latencyMs int64
			success   int
			createdAt int64
		)
		if err := rows.Scan(&rec.Caller, &rec.Provider, &rec.Model, &rec.InputTokens,
			&rec.OutputTokens, &rec.CostUSD, &latencyMs, &rec.Attempts, &success,
			&rec.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		rec.Latency = time.Duration(latencyMs) * time.Millisecond
		rec.Success = success == 1
		rec.Timestamp = time.Unix(0, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteUsageSink) Close() error {
	return s.db.Close()
}

var _ observability.UsageSink = (*SQLiteUsageSink)(nil)
