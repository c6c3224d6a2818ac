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

package session

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrStaleTurn is returned by Commit when another turn committed after this
// one began.
var ErrStaleTurn = errors.New("session state changed since the turn began")

// ErrTurnClosed is returned when a committed or discarded turn is reused.
var ErrTurnClosed = errors.New("turn already closed")

// Store holds the committed state of one session.
type Store struct {
	current atomic.Pointer[State]
}

// NewStore creates a session with an empty state. An empty id gets a uuid.
func NewStore(id string) *Store {
	if id == "" {
		id = uuid.New().String()
	}
	s := &Store{}
	s.current.Store(newState(id))
	return s
}

// ID returns the session ID.
func (s *Store) ID() string {
	return s.current.Load().ID
}

// State returns the committed snapshot. It must not be modified.
func (s *Store) State() *State {
	return s.current.Load()
}

// Begin starts a turn on a private copy of the committed state.
func (s *Store) Begin() *Turn {
	base := s.current.Load()
	return &Turn{store: s, base: base, draft: base.clone()}
}

// Reset replaces the state with an empty one, keeping the session ID.
func (s *Store) Reset() {
	s.current.Store(newState(s.ID()))
}

// Turn is a draft of the session state. Its accessors are the only way to
// change session state. Not safe for concurrent use.
type Turn struct {
	store  *Store
	base   *State
	draft  *State
	closed bool
}

// State returns the draft as it stands. It must not be modified directly.
func (t *Turn) State() *State {
	return t.draft
}

// Commit publishes the draft. It fails if another turn committed first.
func (t *Turn) Commit() error {
	if t.closed {
		return ErrTurnClosed
	}
	t.closed = true
	t.draft.UpdatedAt = time.Now()
	if !t.store.current.CompareAndSwap(t.base, t.draft) {
		return ErrStaleTurn
	}
	return nil
}

// Discard drops the draft.
func (t *Turn) Discard() {
	t.closed = true
}

// AddDocument adds an upload. A document with the same name and content is
// ignored and false is returned; the same name with new content replaces
// the old document, which then needs analysis again.
func (t *Turn) AddDocument(name, text string) bool {
	hash := ContentHash(text)
	for i, d := range t.draft.Documents {
		if d.Name != name {
			continue
		}
		if d.Hash == hash {
			return false
		}
		t.draft.Documents[i] = Document{Name: name, Text: text, Hash: hash, UploadedAt: time.Now()}
		t.mergeInsights()
		return true
	}
	t.draft.Documents = append(t.draft.Documents, Document{Name: name, Text: text, Hash: hash, UploadedAt: time.Now()})
	return true
}

// SetDocumentSummary sets the auto-summary of a document. An empty summary
// never replaces an existing one.
func (t *Turn) SetDocumentSummary(name, summary string) bool {
	summary = strings.TrimSpace(summary)
	for i, d := range t.draft.Documents {
		if d.Name == name {
			if summary == "" && d.Summary != "" {
				return false
			}
			t.draft.Documents[i].Summary = summary
			return true
		}
	}
	return false
}

// SetDocumentInsights stores the insights of an analyzed document and
// recomputes the merged insights.
func (t *Turn) SetDocumentInsights(name string, insights *Insights) bool {
	if insights == nil {
		return false
	}
	for i, d := range t.draft.Documents {
		if d.Name == name {
			t.draft.Documents[i].Insights = insights.Clone()
			t.draft.Documents[i].Analyzed = true
			t.mergeInsights()
			return true
		}
	}
	return false
}

// SetInsights replaces the merged insights, as enhance does. nil is ignored.
func (t *Turn) SetInsights(insights *Insights) {
	if insights == nil {
		return
	}
	t.draft.Insights = insights.Clone()
}

// SetRequirements replaces the requirement list and records the insights
// fingerprint it came from. An empty list is ignored.
func (t *Turn) SetRequirements(reqs []Requirement, from string) {
	if len(reqs) == 0 {
		return
	}
	t.draft.Requirements = append([]Requirement(nil), reqs...)
	t.draft.RequirementsFrom = from
}

// SetCompliance replaces the compliance result. nil is ignored.
func (t *Turn) SetCompliance(result *ComplianceResult) {
	if result == nil {
		return
	}
	c := *result
	c.Findings = append([]Finding(nil), result.Findings...)
	t.draft.Compliance = &c
}

// SetOutline replaces the outline. An empty outline is ignored.
func (t *Turn) SetOutline(sections []OutlineSection) {
	if len(sections) == 0 {
		return
	}
	t.draft.Outline = append([]OutlineSection(nil), sections...)
}

// PutSection stores a draft and returns it with its revision set: 1 for a
// first draft, previous+1 for a redraft. The previous draft, if any, is
// returned too.
func (t *Turn) PutSection(draft SectionDraft) (SectionDraft, *SectionDraft) {
	var previous *SectionDraft
	draft.Revision = 1
	if old, ok := t.draft.Sections[draft.ID]; ok {
		prev := old
		previous = &prev
		draft.Revision = old.Revision + 1
	}
	draft.Sources = append([]string(nil), draft.Sources...)
	draft.UpdatedAt = time.Now()
	t.draft.Sections[draft.ID] = draft
	return draft, previous
}

// AppendTurn adds a conversation turn.
func (t *Turn) AppendTurn(role, text string) {
	t.draft.History = append(t.draft.History, ConversationTurn{Role: role, Text: text, Timestamp: time.Now()})
}

// AppendRetrieval adds a retrieval log entry.
func (t *Turn) AppendRetrieval(q RetrievalQuery) {
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now()
	}
	t.draft.RetrievalLog = append(t.draft.RetrievalLog, q)
}

// AppendAgentQuery adds an agent log entry.
func (t *Turn) AppendAgentQuery(q AgentQuery) {
	t.draft.AgentLog = append(t.draft.AgentLog, q)
}

// SetMemo records the input fingerprint handler ran on.
func (t *Turn) SetMemo(handler, fingerprint string) {
	t.draft.memo[handler] = fingerprint
}

// mergeInsights rebuilds the merged insights from analyzed documents in
// upload order: the first non-empty scalar wins, lists are unioned. With no
// analyzed documents the merged insights are cleared.
func (t *Turn) mergeInsights() {
	var merged *Insights
	var summaries []string
	for _, d := range t.draft.Documents {
		if !d.Analyzed || d.Insights == nil {
			continue
		}
		in := d.Insights
		if merged == nil {
			merged = &Insights{}
		}
		if merged.DealType == "" {
			merged.DealType = in.DealType
		}
		if merged.LoanAmount == 0 {
			merged.LoanAmount = in.LoanAmount
		}
		if merged.Currency == "" {
			merged.Currency = in.Currency
		}
		if merged.Term == "" {
			merged.Term = in.Term
		}
		if merged.Collateral == "" {
			merged.Collateral = in.Collateral
		}
		merged.Parties = union(merged.Parties, in.Parties)
		merged.KeyFacts = union(merged.KeyFacts, in.KeyFacts)
		merged.Risks = union(merged.Risks, in.Risks)
		if s := strings.TrimSpace(in.Summary); s != "" {
			summaries = append(summaries, s)
		}
	}
	if merged == nil {
		// nothing analyzed remains; drop figures from replaced documents
		t.draft.Insights = nil
		return
	}
	merged.Summary = strings.Join(summaries, " ")
	t.draft.Insights = merged
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
