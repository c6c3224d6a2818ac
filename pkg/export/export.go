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

// Package export renders the drafted memo for delivery: Markdown for
// reading and XLSX for workbooks that credit teams annotate.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/teradata-labs/dealdraft/pkg/session"
)

// Document is the exportable view of a session.
type Document struct {
	Title        string
	Insights     *session.Insights
	Requirements []session.Requirement
	Compliance   *session.ComplianceResult
	Sections     []Section
	GeneratedAt  time.Time
}

// Section is one drafted memo section.
type Section struct {
	ID       string
	Title    string
	Content  string
	Sources  []string
	Revision int
}

// Exporter renders a Document. The result is the rendered text for text
// formats and the written file path for binary ones.
type Exporter interface {
	Export(ctx context.Context, doc Document) (string, error)
}

// FromState builds a Document from session state. Sections follow the
// outline order; undrafted outline sections are left out.
func FromState(st *session.State, title string) Document {
	doc := Document{
		Title:        title,
		Insights:     st.Insights.Clone(),
		Requirements: append([]session.Requirement(nil), st.Requirements...),
		Compliance:   st.Compliance,
		GeneratedAt:  time.Now(),
	}
	for _, id := range st.SectionIDs() {
		d := st.Sections[id]
		doc.Sections = append(doc.Sections, Section{
			ID:       d.ID,
			Title:    d.Title,
			Content:  d.Content,
			Sources:  append([]string(nil), d.Sources...),
			Revision: d.Revision,
		})
	}
	return doc
}

// titleCase builds a caser per call; a cases.Caser is stateful.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// ForPath returns the exporter matching path's extension.
func ForPath(path string) (Exporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", "":
		return NewMarkdownExporter(), nil
	case ".xlsx":
		return NewXLSXExporter(path), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (supported: .md, .xlsx)", filepath.Ext(path))
	}
}

// WriteFile exports doc to path and returns the written path.
func WriteFile(ctx context.Context, doc Document, path string) (string, error) {
	exp, err := ForPath(path)
	if err != nil {
		return "", err
	}
	out, err := exp.Export(ctx, doc)
	if err != nil {
		return "", err
	}
	if _, ok := exp.(*XLSXExporter); ok {
		return out, nil
	}
	if filepath.Ext(path) == "" {
		path += ".md"
	}
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
