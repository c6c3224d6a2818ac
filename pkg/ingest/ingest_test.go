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

package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExtract_Text(t *testing.T) {
	text, err := Extract(File{Name: "brief.TXT", Data: []byte("\xef\xbb\xbfAcme seeks a loan.\r\nTerm: 5 years.\r\n")})
	require.NoError(t, err)
	assert.Equal(t, "Acme seeks a loan.\nTerm: 5 years.", text)

	text, err = Extract(File{Name: "notes.md", Data: []byte("# Deal\n\nRevolver")})
	require.NoError(t, err)
	assert.Equal(t, "# Deal\n\nRevolver", text)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	_, err := Extract(File{Name: "bad.txt", Data: []byte{0xff, 0xfe, 0xfd}})
	assert.ErrorContains(t, err, "not valid UTF-8")
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract(File{Name: "deck.pptx", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, Supported("deck.pptx"))
	assert.True(t, Supported("model.xlsx"))
}

func TestExtract_BadPDF(t *testing.T) {
	_, err := Extract(File{Name: "memo.pdf", Data: []byte("not a pdf")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memo.pdf")
}

func TestExtract_Excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Metric"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "FY24"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "EBITDA"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 4200000))
	_, err := f.NewSheet("Debt")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Debt", "A1", "Senior"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := Extract(File{Name: "model.xlsx", Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Contains(t, text, "Sheet: Sheet1\nMetric\tFY24\nEBITDA\t4200000")
	assert.Contains(t, text, "Sheet: Debt\nSenior")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("second"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o700))

	files, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, []byte("second"), files[1].Data)

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
