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

package orchestration

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/dealdraft/pkg/session"
)

func formatInsights(in *session.Insights) string {
	if in.IsEmpty() {
		return "No insights extracted yet."
	}
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	list := func(label string, values []string) {
		if len(values) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", label)
		for _, v := range values {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}

	line("Deal type", in.DealType)
	line("Parties", strings.Join(in.Parties, ", "))
	if in.LoanAmount > 0 {
		line("Loan amount", strings.TrimSpace(session.FormatAmount(in.LoanAmount)+" "+in.Currency))
	}
	line("Term", in.Term)
	line("Collateral", in.Collateral)
	list("Key facts", in.KeyFacts)
	list("Risks", in.Risks)
	list("Benchmarks", in.Benchmarks)
	line("Summary", in.Summary)
	return strings.TrimRight(b.String(), "\n")
}

func formatRequirements(reqs []session.Requirement) string {
	if len(reqs) == 0 {
		return "No requirements yet.\n"
	}
	var b strings.Builder
	for _, r := range reqs {
		fmt.Fprintf(&b, "- [%s] %s", r.ID, r.Title)
		if r.Mandatory {
			b.WriteString(" (mandatory)")
		}
		if r.Source != "" {
			fmt.Fprintf(&b, " [source: %s]", r.Source)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatCompliance(c *session.ComplianceResult) string {
	if c == nil {
		return "No compliance check yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Overall status: %s\n", strings.ToUpper(c.Status))
	if c.Summary != "" {
		fmt.Fprintf(&b, "%s\n", c.Summary)
	}
	for _, f := range c.Findings {
		fmt.Fprintf(&b, "- %s: %s", f.RequirementID, f.Status)
		if f.Detail != "" {
			fmt.Fprintf(&b, " (%s)", f.Detail)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatOutline(outline []session.OutlineSection) string {
	var b strings.Builder
	for i, sec := range outline {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, sec.Title, sec.ID)
		if sec.Purpose != "" {
			fmt.Fprintf(&b, ": %s", sec.Purpose)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatDraft(d session.SectionDraft, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n%s\n", d.Title, d.Content)
	if len(d.Sources) > 0 {
		fmt.Fprintf(&b, "\nSources: %s\n", strings.Join(d.Sources, ", "))
	}
	if note != "" {
		fmt.Fprintf(&b, "\n%s\n", note)
	}
	b.WriteString("\nApprove the draft or tell me what to change.")
	return b.String()
}

// sectionsText renders drafted sections in outline order for prompts.
func sectionsText(st *session.State) string {
	ids := st.SectionIDs()
	if len(ids) == 0 {
		return "(none drafted)"
	}
	var b strings.Builder
	for _, id := range ids {
		d := st.Sections[id]
		fmt.Fprintf(&b, "### %s (%s)\n%s\n\n", d.Title, id, d.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
