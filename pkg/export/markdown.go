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

package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/teradata-labs/dealdraft/pkg/session"
)

// MarkdownExporter renders a Document as Markdown.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Export implements Exporter and returns the Markdown text.
func (e *MarkdownExporter) Export(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	title := doc.Title
	if title == "" {
		title = "credit memo"
	}
	fmt.Fprintf(&b, "# %s\n\n", titleCase(title))
	if !doc.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Generated %s_\n\n", doc.GeneratedAt.Format("2006-01-02 15:04"))
	}

	if in := doc.Insights; !in.IsEmpty() {
		b.WriteString("## Deal Summary\n\n")
		row := func(label, value string) {
			if value != "" {
				fmt.Fprintf(&b, "- **%s:** %s\n", label, value)
			}
		}
		row("Deal type", in.DealType)
		row("Parties", strings.Join(in.Parties, ", "))
		if in.LoanAmount != 0 {
			row("Amount", strings.TrimSpace(session.FormatAmount(in.LoanAmount)+" "+in.Currency))
		}
		row("Term", in.Term)
		row("Collateral", in.Collateral)
		b.WriteString("\n")
	}

	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", titleCase(s.Title), strings.TrimSpace(s.Content))
		if len(s.Sources) > 0 {
			fmt.Fprintf(&b, "_Sources: %s_\n\n", strings.Join(s.Sources, ", "))
		}
	}

	if len(doc.Requirements) > 0 {
		b.WriteString("## Requirements\n\n")
		for _, r := range doc.Requirements {
			mark := ""
			if r.Mandatory {
				mark = " (mandatory)"
			}
			fmt.Fprintf(&b, "- **%s** %s%s: %s\n", r.ID, r.Title, mark, r.Description)
		}
		b.WriteString("\n")
	}

	if c := doc.Compliance; c != nil {
		fmt.Fprintf(&b, "## Compliance\n\nOverall status: **%s**\n\n", strings.ToUpper(c.Status))
		for _, f := range c.Findings {
			fmt.Fprintf(&b, "- %s: %s. %s\n", f.RequirementID, f.Status, f.Detail)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

var _ Exporter = (*MarkdownExporter)(nil)
