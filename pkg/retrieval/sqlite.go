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
	"database/sql"
	"fmt"
	"strings"

	"github.com/teradata-labs/dealdraft/internal/sqlitedriver"
)

// SQLiteIndex stores passages in an FTS5 table and ranks them with bm25.
// Builds without FTS5 fail in NewSQLiteIndex; check with
// sqlitedriver.IsFTS5Unavailable.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (or creates) the passage index at dbPath.
func NewSQLiteIndex(ctx context.Context, dbPath string) (*SQLiteIndex, error) {
	db, err := sqlitedriver.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	idx := &SQLiteIndex{db: db}
	if err := idx.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return idx, nil
}

func (s *SQLiteIndex) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS passages USING fts5(
			corpus UNINDEXED,
			source UNINDEXED,
			text,
			tokenize = 'porter unicode61'
		)`)
	return err
}

// Index implements Retriever.
func (s *SQLiteIndex) Index(ctx context.Context, corpus, source, text string) error {
	if corpus == "" {
		return fmt.Errorf("index %s: corpus is required", source)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages WHERE corpus = ? AND source = ?", corpus, source); err != nil {
		return fmt.Errorf("failed to clear %s: %w", source, err)
	}
	for _, chunk := range Chunk(text, 0) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO passages (corpus, source, text) VALUES (?, ?, ?)", corpus, source, chunk); err != nil {
			return fmt.Errorf("failed to index %s: %w", source, err)
		}
	}
	return tx.Commit()
}

// Search implements Retriever.
func (s *SQLiteIndex) Search(ctx context.Context, corpus, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if corpus != "" {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages WHERE corpus = ?", corpus).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to check corpus: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCorpus, corpus)
		}
	}

	match := matchExpr(query)
	if match == "" {
		return nil, nil
	}

	q := "SELECT corpus, source, text, bm25(passages) FROM passages WHERE passages MATCH ?"
	args := []interface{}{match}
	if corpus != "" {
		q += " AND corpus = ?"
		args = append(args, corpus)
	}
	q += " ORDER BY bm25(passages) LIMIT ?"
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	defer rows.Close()

	var hits []Passage
	for rows.Next() {
		var p Passage
		var rank float64
		if err := rows.Scan(&p.Corpus, &p.Source, &p.Text, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		// bm25 is lower-is-better
		p.Score = -rank
		hits = append(hits, p)
	}
	return hits, rows.Err()
}

// Corpora implements Retriever.
func (s *SQLiteIndex) Corpora(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT corpus FROM passages ORDER BY corpus")
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// matchExpr turns free text into an FTS5 OR query of quoted terms, so user
// punctuation is never parsed as query syntax.
func matchExpr(query string) string {
	terms := uniq(Terms(query))
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

var _ Retriever = (*SQLiteIndex)(nil)
