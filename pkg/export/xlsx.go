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

	"github.com/xuri/excelize/v2"
)

// Sheet names of an exported workbook.
const (
	SheetSections     = "Sections"
	SheetRequirements = "Requirements"
	SheetCompliance   = "Compliance"
)

// XLSXExporter writes a Document to a workbook at Path.
type XLSXExporter struct {
	Path string
}

// NewXLSXExporter creates an exporter writing to path.
func NewXLSXExporter(path string) *XLSXExporter {
	return &XLSXExporter{Path: path}
}

// Export implements Exporter and returns the written path.
func (e *XLSXExporter) Export(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSections); err != nil {
		return "", err
	}
	rows := [][]interface{}{{"ID", "Title", "Revision", "Content", "Sources"}}
	for _, s := range doc.Sections {
		rows = append(rows, []interface{}{s.ID, titleCase(s.Title), s.Revision, s.Content, strings.Join(s.Sources, ", ")})
	}
	if err := writeRows(f, SheetSections, rows); err != nil {
		return "", err
	}

	if len(doc.Requirements) > 0 {
		rows = [][]interface{}{{"ID", "Title", "Category", "Mandatory", "Description", "Source"}}
		for _, r := range doc.Requirements {
			rows = append(rows, []interface{}{r.ID, r.Title, r.Category, r.Mandatory, r.Description, r.Source})
		}
		if err := addSheet(f, SheetRequirements, rows); err != nil {
			return "", err
		}
	}

	if c := doc.Compliance; c != nil {
		rows = [][]interface{}{{"Requirement", "Status", "Detail"}}
		for _, finding := range c.Findings {
			rows = append(rows, []interface{}{finding.RequirementID, finding.Status, finding.Detail})
		}
		rows = append(rows, []interface{}{"overall", c.Status, c.Summary})
		if err := addSheet(f, SheetCompliance, rows); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(e.Path); err != nil {
		return "", fmt.Errorf("save %s: %w", e.Path, err)
	}
	return e.Path, nil
}

func addSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

var _ Exporter = (*XLSXExporter)(nil)
