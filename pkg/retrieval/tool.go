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
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
)

// SearchToolName is the tool agents search documents with.
const SearchToolName = "search_documents"

// ErrCodeRetrievalFailed marks a search that hit an error.
const ErrCodeRetrievalFailed = "retrieval_failed"

// SearchTool exposes a Retriever to the tool-calling loop and logs every
// query, successful or not.
type SearchTool struct {
	retriever     Retriever
	log           *Log
	defaultCorpus string
	topK          int
	tracer        observability.Tracer
	logger        *zap.Logger
}

// SearchToolConfig configures a SearchTool.
type SearchToolConfig struct {
	Retriever Retriever
	Log       *Log
	// DefaultCorpus is searched when a call names none. Empty searches all.
	DefaultCorpus string
	TopK          int
	Tracer        observability.Tracer
	Logger        *zap.Logger
}

// NewSearchTool creates the tool. A nil Log gets a fresh one.
func NewSearchTool(cfg SearchToolConfig) *SearchTool {
	if cfg.Log == nil {
		cfg.Log = NewLog()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoOpTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &SearchTool{
		retriever:     cfg.Retriever,
		log:           cfg.Log,
		defaultCorpus: cfg.DefaultCorpus,
		topK:          cfg.TopK,
		tracer:        cfg.Tracer,
		logger:        cfg.Logger,
	}
}

// Log returns the query log.
func (t *SearchTool) Log() *Log {
	return t.log
}

// Name implements shuttle.Tool.
func (t *SearchTool) Name() string {
	return SearchToolName
}

// Description implements shuttle.Tool.
func (t *SearchTool) Description() string {
	return fmt.Sprintf("Search document passages by keywords. Corpora: %s (uploaded deal documents), %s (credit policy), %s (past deals and benchmarks).",
		CorpusUploaded, CorpusPolicy, CorpusPrecedents)
}

// InputSchema implements shuttle.Tool.
func (t *SearchTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema("Document search", map[string]*shuttle.JSONSchema{
		"query":  shuttle.NewStringSchema("Keywords to search for"),
		"corpus": shuttle.NewStringSchema("Corpus to search; omit to use the default"),
		"top_k":  shuttle.NewIntegerSchema("Maximum passages to return"),
	}, []string{"query"})
}

// Execute implements shuttle.Tool.
func (t *SearchTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	query, _ := params["query"].(string)
	corpus, _ := params["corpus"].(string)
	corpus = strings.ToLower(strings.TrimSpace(corpus))
	if corpus == "" {
		corpus = t.defaultCorpus
	}
	k := t.topK
	if v, ok := params["top_k"].(float64); ok && v > 0 {
		k = int(v)
	}

	ctx, span := t.tracer.StartSpan(ctx, observability.SpanRetrievalSearch,
		observability.WithAttribute("retrieval.corpus", corpus),
		observability.WithAttribute("retrieval.query", query))
	defer t.tracer.EndSpan(span)

	entry := session.RetrievalQuery{
		Caller:    session.AgentIDFromContext(ctx),
		Query:     query,
		Corpus:    corpus,
		Timestamp: time.Now(),
	}

	hits, err := t.retriever.Search(ctx, corpus, query, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		span.RecordError(err)
		entry.Status = session.RetrievalError
		entry.Error = err.Error()
		t.log.Append(entry)
		t.logger.Warn("retrieval failed", append(session.LogFields(ctx),
			zap.String("corpus", corpus),
			zap.String("query", query),
			zap.Error(err))...)
		return &shuttle.Result{
			Success: false,
			Error:   &shuttle.Error{Code: ErrCodeRetrievalFailed, Message: err.Error()},
		}, nil
	}

	entry.Results = len(hits)
	entry.Status = session.RetrievalOK
	if len(hits) == 0 {
		entry.Status = session.RetrievalEmpty
	}
	entry.Sources = sources(hits)
	t.log.Append(entry)
	span.SetAttribute("retrieval.results", len(hits))

	return &shuttle.Result{
		Success:  true,
		Data:     FormatPassages(corpus, hits),
		Metadata: map[string]interface{}{"results": len(hits)},
	}, nil
}

// FormatPassages renders hits the way agents read them.
func FormatPassages(corpus string, hits []Passage) string {
	if len(hits) == 0 {
		where := "any corpus"
		if corpus != "" {
			where = "corpus " + corpus
		}
		return "No matching passages in " + where + "."
	}
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s/%s\n%s", i+1, h.Corpus, h.Source, h.Text)
	}
	return b.String()
}

func sources(hits []Passage) []string {
	seen := make(map[string]bool, len(hits))
	var out []string
	for _, h := range hits {
		if !seen[h.Source] {
			seen[h.Source] = true
			out = append(out, h.Source)
		}
	}
	return out
}

var _ shuttle.Tool = (*SearchTool)(nil)
