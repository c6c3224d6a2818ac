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

// Package session holds the persistent context of one conversation: uploaded
// documents, derived insights, requirements, compliance findings, the memo
// outline and drafts, plus append-only logs of turns, retrievals and agent
// exchanges.
//
// A committed State is never modified. Handlers mutate a Turn, a private
// draft of the state, through accessor methods that enforce the slot rules:
// logs only grow and value slots are only replaced, never cleared. Commit
// publishes the draft with a single pointer swap, so readers always see the
// state before or after a turn and never a torn mix.
package session

import (
	"slices"
	"sort"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Retrieval statuses.
const (
	RetrievalOK    = "ok"
	RetrievalEmpty = "empty"
	RetrievalError = "error"
)

// Document is an uploaded file after extraction.
type Document struct {
	Name       string
	Text       string
	Hash       string
	Summary    string
	Analyzed   bool
	Insights   *Insights
	UploadedAt time.Time
}

// Insights are the deal facts extracted from documents.
type Insights struct {
	DealType   string   `json:"deal_type"`
	Parties    []string `json:"parties"`
	LoanAmount float64  `json:"loan_amount"`
	Currency   string   `json:"currency"`
	Term       string   `json:"term"`
	Collateral string   `json:"collateral"`
	KeyFacts   []string `json:"key_facts"`
	Risks      []string `json:"risks"`
	Summary    string   `json:"summary"`

	// Set by the enhance handler.
	Enhanced   bool     `json:"enhanced,omitempty"`
	Benchmarks []string `json:"benchmarks,omitempty"`
}

// Requirement is one documentation or policy requirement for the deal.
type Requirement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Source      string `json:"source,omitempty"`
	Mandatory   bool   `json:"mandatory"`
}

// Finding is a compliance verdict on one requirement.
type Finding struct {
	RequirementID string `json:"requirement_id"`
	Status        string `json:"status"`
	Detail        string `json:"detail"`
}

// ComplianceResult is the outcome of a compliance check.
type ComplianceResult struct {
	Status   string    `json:"status"`
	Findings []Finding `json:"findings"`
	Summary  string    `json:"summary,omitempty"`
}

// OutlineSection is one planned memo section.
type OutlineSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Purpose string `json:"purpose"`
}

// SectionDraft is the drafted content of an outline section. Revision starts
// at 1 and grows with each redraft.
type SectionDraft struct {
	ID        string
	Title     string
	Content   string
	Sources   []string
	Revision  int
	UpdatedAt time.Time
}

// ConversationTurn is one message of the conversation.
type ConversationTurn struct {
	Role      string
	Text      string
	Timestamp time.Time
}

// RetrievalQuery records one search issued by an agent.
type RetrievalQuery struct {
	Caller    string
	Query     string
	Corpus    string
	Results   int
	Sources   []string
	Status    string
	Error     string
	Timestamp time.Time
}

// Failed reports whether the query hit an error.
func (q RetrievalQuery) Failed() bool {
	return q.Status == RetrievalError
}

// AgentQuery mirrors one bus exchange.
type AgentQuery struct {
	ID        string
	From      string
	To        string
	Query     string
	Response  string
	Failed    bool
	Timestamp time.Time
}

// State is a snapshot of the persistent context. Snapshots returned by Store
// are shared and must not be modified.
type State struct {
	ID string

	Documents []Document

	// Insights merges every analyzed document.
	Insights *Insights

	Requirements []Requirement
	// RequirementsFrom is the insights fingerprint the requirements were
	// derived from.
	RequirementsFrom string

	Compliance *ComplianceResult
	Outline    []OutlineSection
	Sections   map[string]SectionDraft

	History      []ConversationTurn
	RetrievalLog []RetrievalQuery
	AgentLog     []AgentQuery

	// memo maps a handler name to the fingerprint of the inputs it last ran on.
	memo map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newState(id string) *State {
	now := time.Now()
	return &State{
		ID:        id,
		Sections:  make(map[string]SectionDraft),
		memo:      make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Document returns the named document.
func (s *State) Document(name string) (Document, bool) {
	for _, d := range s.Documents {
		if d.Name == name {
			return d, true
		}
	}
	return Document{}, false
}

// Section returns the draft of an outline section.
func (s *State) Section(id string) (SectionDraft, bool) {
	d, ok := s.Sections[id]
	return d, ok
}

// OutlineSection returns the outline entry with id.
func (s *State) OutlineSection(id string) (OutlineSection, bool) {
	for _, sec := range s.Outline {
		if sec.ID == id {
			return sec, true
		}
	}
	return OutlineSection{}, false
}

// SectionIDs returns drafted section IDs in outline order, then any drafts
// not in the outline in name order.
func (s *State) SectionIDs() []string {
	ids := make([]string, 0, len(s.Sections))
	seen := make(map[string]bool, len(s.Sections))
	for _, sec := range s.Outline {
		if _, ok := s.Sections[sec.ID]; ok {
			ids = append(ids, sec.ID)
			seen[sec.ID] = true
		}
	}
	var rest []string
	for id := range s.Sections {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// Memo returns the input fingerprint handler last ran on.
func (s *State) Memo(handler string) string {
	return s.memo[handler]
}

// PendingDocuments returns documents that have not been analyzed.
func (s *State) PendingDocuments() []Document {
	var out []Document
	for _, d := range s.Documents {
		if !d.Analyzed {
			out = append(out, d)
		}
	}
	return out
}

// clone deep-copies s so a draft never aliases a committed snapshot.
func (s *State) clone() *State {
	c := *s
	c.Documents = make([]Document, len(s.Documents))
	for i, d := range s.Documents {
		d.Insights = d.Insights.Clone()
		c.Documents[i] = d
	}
	c.Insights = s.Insights.Clone()
	c.Requirements = slices.Clone(s.Requirements)
	if s.Compliance != nil {
		comp := *s.Compliance
		comp.Findings = slices.Clone(s.Compliance.Findings)
		c.Compliance = &comp
	}
	c.Outline = slices.Clone(s.Outline)
	c.Sections = make(map[string]SectionDraft, len(s.Sections))
	for k, v := range s.Sections {
		v.Sources = slices.Clone(v.Sources)
		c.Sections[k] = v
	}
	c.History = slices.Clone(s.History)
	c.RetrievalLog = slices.Clone(s.RetrievalLog)
	c.AgentLog = slices.Clone(s.AgentLog)
	c.memo = make(map[string]string, len(s.memo))
	for k, v := range s.memo {
		c.memo[k] = v
	}
	return &c
}

// Clone returns a deep copy of i.
func (i *Insights) Clone() *Insights {
	if i == nil {
		return nil
	}
	c := *i
	c.Parties = slices.Clone(i.Parties)
	c.KeyFacts = slices.Clone(i.KeyFacts)
	c.Risks = slices.Clone(i.Risks)
	c.Benchmarks = slices.Clone(i.Benchmarks)
	return &c
}

// IsEmpty reports whether no fact has been extracted.
func (i *Insights) IsEmpty() bool {
	return i == nil || (i.DealType == "" && len(i.Parties) == 0 && i.LoanAmount == 0 &&
		i.Currency == "" && i.Term == "" && i.Collateral == "" && len(i.KeyFacts) == 0 &&
		len(i.Risks) == 0 && i.Summary == "")
}
