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
	"math"
	"sort"
	"sync"
)

type memoryPassage struct {
	source string
	text   string
	terms  map[string]int
	length int
}

// MemoryIndex ranks passages by query term overlap, weighted by inverse
// document frequency. Safe for concurrent use.
type MemoryIndex struct {
	mu      sync.RWMutex
	corpora map[string][]memoryPassage
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{corpora: make(map[string][]memoryPassage)}
}

// Index implements Retriever.
func (m *MemoryIndex) Index(ctx context.Context, corpus, source, text string) error {
	if corpus == "" {
		return fmt.Errorf("index %s: corpus is required", source)
	}
	var passages []memoryPassage
	for _, chunk := range Chunk(text, 0) {
		p := memoryPassage{source: source, text: chunk, terms: make(map[string]int)}
		for _, term := range Terms(chunk) {
			p.terms[term]++
			p.length++
		}
		passages = append(passages, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.corpora[corpus][:0:0]
	for _, p := range m.corpora[corpus] {
		if p.source != source {
			kept = append(kept, p)
		}
	}
	m.corpora[corpus] = append(kept, passages...)
	return nil
}

// Search implements Retriever.
func (m *MemoryIndex) Search(ctx context.Context, corpus, query string, k int) ([]Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	names := []string{corpus}
	if corpus == "" {
		names = names[:0]
		for name := range m.corpora {
			names = append(names, name)
		}
		sort.Strings(names)
	} else if _, ok := m.corpora[corpus]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCorpus, corpus)
	}

	terms := uniq(Terms(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []Passage
	for _, name := range names {
		passages := m.corpora[name]
		df := make(map[string]int, len(terms))
		for _, p := range passages {
			for _, t := range terms {
				if p.terms[t] > 0 {
					df[t]++
				}
			}
		}
		for _, p := range passages {
			score := 0.0
			for _, t := range terms {
				if tf := p.terms[t]; tf > 0 {
					idf := math.Log(1 + float64(len(passages))/float64(df[t]))
					score += (1 + math.Log(float64(tf))) * idf
				}
			}
			if score > 0 {
				hits = append(hits, Passage{Corpus: name, Source: p.source, Text: p.text, Score: score})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Corpora implements Retriever.
func (m *MemoryIndex) Corpora(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.corpora))
	for name, passages := range m.corpora {
		if len(passages) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func uniq(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

var _ Retriever = (*MemoryIndex)(nil)
