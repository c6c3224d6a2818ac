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
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// digestHistoryTurns bounds the history included in a digest.
const digestHistoryTurns = 6

// Digest renders a compact, model-readable summary of the state. It lists
// what exists (documents, insights, requirements, compliance, outline and
// drafts) without the full document text.
func (s *State) Digest() string {
	var b strings.Builder

	if len(s.Documents) == 0 {
		b.WriteString("Documents: none uploaded\n")
	} else {
		b.WriteString("Documents:\n")
		for _, d := range s.Documents {
			status := "not analyzed"
			if d.Analyzed {
				status = "analyzed"
			}
			fmt.Fprintf(&b, "- %s (%s)", d.Name, status)
			if d.Summary != "" {
				fmt.Fprintf(&b, ": %s", OneLine(d.Summary, 200))
			}
			b.WriteString("\n")
		}
	}

	if in := s.Insights; !in.IsEmpty() {
		b.WriteString("Insights:\n")
		writeField(&b, "deal type", in.DealType)
		writeField(&b, "parties", strings.Join(in.Parties, ", "))
		if in.LoanAmount != 0 {
			writeField(&b, "loan amount", strings.TrimSpace(FormatAmount(in.LoanAmount)+" "+in.Currency))
		}
		writeField(&b, "term", in.Term)
		writeField(&b, "collateral", in.Collateral)
		for _, f := range in.KeyFacts {
			writeField(&b, "fact", f)
		}
		for _, r := range in.Risks {
			writeField(&b, "risk", r)
		}
		writeField(&b, "summary", OneLine(in.Summary, 300))
		if in.Enhanced {
			b.WriteString("  (enhanced with benchmarks)\n")
		}
	} else {
		b.WriteString("Insights: none\n")
	}

	fmt.Fprintf(&b, "Requirements: %d\n", len(s.Requirements))
	if s.Compliance != nil {
		fmt.Fprintf(&b, "Compliance: %s (%d findings)\n", s.Compliance.Status, len(s.Compliance.Findings))
	} else {
		b.WriteString("Compliance: not checked\n")
	}

	if len(s.Outline) == 0 {
		b.WriteString("Outline: none\n")
	} else {
		b.WriteString("Outline:\n")
		for _, sec := range s.Outline {
			mark := "pending"
			if d, ok := s.Sections[sec.ID]; ok {
				mark = "drafted r" + strconv.Itoa(d.Revision)
			}
			fmt.Fprintf(&b, "- %s: %s [%s]\n", sec.ID, sec.Title, mark)
		}
	}

	fmt.Fprintf(&b, "Retrieval queries: %d, agent messages: %d\n", len(s.RetrievalLog), len(s.AgentLog))
	return b.String()
}

// RecentHistory returns up to n of the latest turns formatted one per line.
// n <= 0 uses the digest default.
func (s *State) RecentHistory(n int) string {
	if n <= 0 {
		n = digestHistoryTurns
	}
	turns := s.History
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, OneLine(t.Text, 400))
	}
	return b.String()
}

// FormatAmount renders a money amount with thousands separators.
func FormatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := strconv.FormatFloat(v, 'f', 0, 64)
	if v != float64(int64(v)) {
		whole = strconv.FormatFloat(v, 'f', 2, 64)
	}
	intPart, frac, _ := strings.Cut(whole, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteString("." + frac)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, value)
}

// OneLine collapses whitespace in s and truncates it to limit bytes, marking
// the cut with "...".
func OneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		return Truncate(s, limit) + "..."
	}
	return s
}

// Truncate returns at most limit bytes of s, cut on a rune boundary.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
