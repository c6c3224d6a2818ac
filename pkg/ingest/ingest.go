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

// Package ingest turns uploaded files into plain text.
//
// Supported formats: .txt, .md and .csv are read as text, .pdf is extracted
// page by page with ledongthuc/pdf, and .xlsx sheets are rendered as
// tab-separated rows with excelize.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Limits applied during extraction.
const (
	MaxPDFPages  = 200
	MaxExcelRows = 5000
	MaxFileBytes = 20 << 20
)

// ErrUnsupportedFormat is returned for file types Extract cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// File is an uploaded file.
type File struct {
	Name string
	Data []byte
}

// ReadFile loads a file from disk.
func ReadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.Size() > MaxFileBytes {
		return File{}, fmt.Errorf("%s: file too large (%d bytes, limit %d)", path, info.Size(), MaxFileBytes)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-selected upload
	if err != nil {
		return File{}, err
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// Supported reports whether Extract handles name's extension.
func Supported(name string) bool {
	switch Format(name) {
	case "text", "pdf", "excel":
		return true
	}
	return false
}

// Format classifies a file name by extension.
func Format(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".csv":
		return "text"
	case ".pdf":
		return "pdf"
	case ".xlsx", ".xlsm":
		return "excel"
	default:
		return "unknown"
	}
}

// Extract returns the text content of f.
func Extract(f File) (string, error) {
	var (
		text string
		err  error
	)
	switch Format(f.Name) {
	case "text":
		text, err = extractText(f.Data)
	case "pdf":
		text, err = extractPDF(f.Data)
	case "excel":
		text, err = extractExcel(f.Data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return strings.TrimSpace(text), nil
}

func extractText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("error opening PDF: %w", err)
	}

	total := reader.NumPage()
	if total > MaxPDFPages {
		total = MaxPDFPages
	}

	var b strings.Builder
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// keep what the other pages give
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(text))
	}
	if b.Len() == 0 {
		return "", errors.New("no extractable text in PDF")
	}
	return b.String(), nil
}

func extractExcel(data []byte) (string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("error opening Excel file: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	for _, sheet := range file.GetSheetList() {
		rows, err := file.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Sheet: %s\n", sheet)
		for i, row := range rows {
			if i >= MaxExcelRows {
				break
			}
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// LoadDir reads every supported file directly under dir, in name order.
func LoadDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		f, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
