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

// Package retrieval indexes text passages per corpus and searches them.
// Agents reach it only through the search_documents tool, which records
// every query in a Log.
package retrieval

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Well-known corpora.
const (
	CorpusUploaded   = "uploaded"
	CorpusPolicy     = "policy"
	CorpusPrecedents = "precedents"
)

// DefaultTopK is used when a search asks for no limit.
const DefaultTopK = 5

// chunkWords is the target passage length.
const chunkWords = 120

// ErrUnknownCorpus is returned when searching a corpus nothing was indexed
// into.
var ErrUnknownCorpus = errors.New("unknown corpus")

// Passage is one search hit.
type Passage struct {
	Corpus string
	Source string
	Text   string
	Score  float64
}

// Retriever searches and indexes passages.
type Retriever interface {
	// Search returns up to k passages of corpus ranked by relevance. An
	// empty corpus searches all of them.
	Search(ctx context.Context, corpus, query string, k int) ([]Passage, error)

	// Index splits text into passages under corpus. Indexing the same source
	// again replaces its passages.
	Index(ctx context.Context, corpus, source, text string) error

	// Corpora lists the corpora with at least one passage.
	Corpora(ctx context.Context) ([]string, error)
}

// Chunk splits text into passages of about size words, keeping paragraphs
// together where they fit.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = chunkWords
	}
	var chunks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if len(current)+len(words) > size {
			flush()
		}
		for len(words) > size {
			chunks = append(chunks, strings.Join(words[:size], " "))
			words = words[size:]
		}
		current = append(current, words...)
	}
	flush()
	return chunks
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"was": true, "what": true, "with": true, "this": true, "that": true,
}

// Terms lower-cases text and splits it into searchable terms without
// stopwords.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}
