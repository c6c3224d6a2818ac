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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/teradata-labs/dealdraft/pkg/session"
)

func sampleState(t *testing.T) *session.State {
	t.Helper()
	store := session.NewStore("s")
	turn := store.Begin()
	turn.AddDocument("brief.txt", "Acme seeks a loan.")
	turn.SetDocumentInsights("brief.txt", &session.Insights{
		DealType:   "term loan",
		Parties:    []string{"Acme Corp", "First Bank"},
		LoanAmount: 5000000,
		Currency:   "USD",
	})
	turn.SetOutline([]session.OutlineSection{
		{ID: "risks", Title: "key risks"},
		{ID: "overview", Title: "executive overview"},
		{ID: "pending", Title: "not drafted"},
	})
	turn.PutSection(session.SectionDraft{ID: "overview", Title: "executive overview", Content: "Acme is a manufacturer.", Sources: []string{"brief.txt"}})
	turn.PutSection(session.SectionDraft{ID: "risks", Title: "key risks", Content: "Customer concentration."})
	turn.SetRequirements([]session.Requirement{{ID: "R1", Title: "Audited financials", Mandatory: true, Description: "Three years."}}, "")
	turn.SetCompliance(&session.ComplianceResult{Status: "partial", Findings: []session.Finding{{RequirementID: "R1", Status: "missing", Detail: "Only two years provided"}}})
	require.NoError(t, turn.Commit())
	return store.State()
}

func TestFromState_FollowsOutline(t *testing.T) {
	doc := FromState(sampleState(t), "acme memo")
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "risks", doc.Sections[0].ID)
	assert.Equal(t, "overview", doc.Sections[1].ID)
	assert.Equal(t, 1, doc.Sections[0].Revision)
}

func TestMarkdownExporter(t *testing.T) {
	doc := FromState(sampleState(t), "acme credit memo")
	doc.GeneratedAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	md, err := NewMarkdownExporter().Export(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# Acme Credit Memo\n\n_Generated 2026-03-01 09:30_"))
	assert.Contains(t, md, "- **Amount:** 5,000,000 USD")
	assert.Contains(t, md, "## Key Risks\n\nCustomer concentration.")
	assert.Contains(t, md, "## Executive Overview\n\nAcme is a manufacturer.\n\n_Sources: brief.txt_")
	assert.Contains(t, md, "- **R1** Audited financials (mandatory): Three years.")
	assert.Contains(t, md, "Overall status: **PARTIAL**")
	assert.NotContains(t, md, "Not Drafted")
	assert.Less(t, strings.Index(md, "Key Risks"), strings.Index(md, "Executive Overview"))
}

func TestMarkdownExporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMarkdownExporter().Export(ctx, Document{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestXLSXExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.xlsx")
	out, err := NewXLSXExporter(path).Export(context.Background(), FromState(sampleState(t), "memo"))
	require.NoError(t, err)
	assert.Equal(t, path, out)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSections, SheetRequirements, SheetCompliance}, f.GetSheetList())
	rows, err := f.GetRows(SheetSections)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Title", "Revision", "Content", "Sources"}, rows[0])
	assert.Equal(t, "Key Risks", rows[1][1])

	compliance, err := f.GetRows(SheetCompliance)
	require.NoError(t, err)
	assert.Equal(t, []string{"overall", "partial"}, compliance[len(compliance)-1])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	doc := FromState(sampleState(t), "memo")

	path, err := WriteFile(context.Background(), doc, filepath.Join(dir, "memo"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "memo.md"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Memo")

	path, err = WriteFile(context.Background(), doc, filepath.Join(dir, "memo.xlsx"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = WriteFile(context.Background(), doc, filepath.Join(dir, "memo.docx"))
	assert.ErrorContains(t, err, "unsupported export format")
}
