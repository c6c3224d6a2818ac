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
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_Empty(t *testing.T) {
	digest := NewStore("s").State().Digest()
	assert.Contains(t, digest, "Documents: none uploaded")
	assert.Contains(t, digest, "Insights: none")
	assert.Contains(t, digest, "Outline: none")
}

func TestDigest_Populated(t *testing.T) {
	store := NewStore("s")
	turn := store.Begin()
	turn.AddDocument("brief.txt", "Acme seeks a loan.")
	turn.SetDocumentSummary("brief.txt", "Acme term loan request.")
	turn.SetDocumentInsights("brief.txt", &Insights{
		DealType:   "term loan",
		LoanAmount: 12500000,
		Currency:   "USD",
		Risks:      []string{"single supplier"},
	})
	turn.SetOutline([]OutlineSection{{ID: "overview", Title: "Overview"}, {ID: "risks", Title: "Risks"}})
	turn.PutSection(SectionDraft{ID: "overview", Content: "text"})
	require.NoError(t, turn.Commit())

	digest := store.State().Digest()
	assert.Contains(t, digest, "- brief.txt (analyzed): Acme term loan request.")
	assert.Contains(t, digest, "loan amount: 12,500,000 USD")
	assert.Contains(t, digest, "risk: single supplier")
	assert.Contains(t, digest, "- overview: Overview [drafted r1]")
	assert.Contains(t, digest, "- risks: Risks [pending]")
	assert.NotContains(t, digest, "Acme seeks a loan.", "document text stays out of the digest")
}

func TestRecentHistory(t *testing.T) {
	store := NewStore("s")
	turn := store.Begin()
	for i := 0; i < 10; i++ {
		turn.AppendTurn(RoleUser, "hello\nthere")
	}
	require.NoError(t, turn.Commit())

	hist := store.State().RecentHistory(3)
	assert.Equal(t, "user: hello there\nuser: hello there\nuser: hello there\n", hist)
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		12500000: "12,500,000",
		-4200:    "-4,200",
		1234.5:   "1,234.50",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(in), "%v", in)
	}
}

func TestFingerprints(t *testing.T) {
	a := &Insights{DealType: "term loan"}
	b := &Insights{DealType: "term loan", Parties: []string{}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "nil and empty lists hash alike")
	assert.NotEqual(t, a.Fingerprint(), (&Insights{DealType: "revolver"}).Fingerprint())
	assert.Equal(t, "", (*Insights)(nil).Fingerprint())

	st := NewStore("s").State()
	assert.Equal(t, "", st.RequirementsFingerprint())
	assert.Equal(t, "", st.SectionsFingerprint())
}

func TestContextIDs(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess")
	ctx = WithAgentID(ctx, "writer")
	assert.Equal(t, "sess", SessionIDFromContext(ctx))
	assert.Equal(t, "writer", AgentIDFromContext(ctx))
	assert.Equal(t, "", AgentIDFromContext(context.Background()))
	assert.Equal(t, context.Background(), WithSessionID(context.Background(), ""))

	fields := LogFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "session_id", fields[0].Key)
	assert.Equal(t, "writer", fields[1].String)
	assert.Empty(t, LogFields(context.Background()))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))

	// "€" is three bytes; a cut inside it backs off to the rune start
	s := "ab€cd"
	assert.Equal(t, "ab", Truncate(s, 3))
	assert.Equal(t, "ab", Truncate(s, 4))
	assert.Equal(t, "ab€", Truncate(s, 5))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", OneLine("a\n  b\tc", 20))

	got := OneLine(strings.Repeat("ü", 10), 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "üü...", got)
}
