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

package jsonrepair

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teradata-labs/dealdraft/pkg/observability"
)

const fenced = "\x60\x60\x60"

func TestExtract_Object(t *testing.T) {
	want := map[string]interface{}{"deal_type": "term loan", "amount": float64(10)}

	tests := []struct {
		name string
		text string
	}{
		{"plain", `{"deal_type": "term loan", "amount": 10}`},
		{"fenced json", fenced + "json\n{\"deal_type\": \"term loan\", \"amount\": 10}\n" + fenced},
		{"fenced bare", fenced + "\n{\"deal_type\": \"term loan\", \"amount\": 10}\n" + fenced},
		{"preamble", "Here is the JSON:\n{\"deal_type\": \"term loan\", \"amount\": 10}"},
		{"sure preamble", "Sure, {\"deal_type\": \"term loan\", \"amount\": 10} hope that helps"},
		{"tagged", "thinking...\n<json>{\"deal_type\": \"term loan\", \"amount\": 10}</json>\ndone"},
		{"output tag", "<output>\n{\"deal_type\": \"term loan\", \"amount\": 10}\n</output>"},
		{"tag and fence", "<json>\n" + fenced + "json\n{\"deal_type\": \"term loan\", \"amount\": 10}\n" + fenced + "\n</json>"},
		{"trailing prose with braces", `{"deal_type": "term loan", "amount": 10} (see {appendix})`},
		{"trailing commas", `{"deal_type": "term loan", "amount": 10,}`},
		{"single quotes", `{'deal_type': 'term loan', 'amount': 10}`},
		{"unquoted keys", `{deal_type: "term loan", amount: 10}`},
		{"missing comma", "{\"deal_type\": \"term loan\"\n\"amount\": 10}"},
		{"everything", "Sure, here you go:\n" + fenced + "json\n{deal_type: 'term loan',\n amount: 10,}\n" + fenced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, ShapeObject)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestExtract_StringsWithBrackets(t *testing.T) {
	text := `{"note": "uses } and { inside", "quote": "it's \"fine\""}`
	got, ok := ExtractObject(text)
	require.True(t, ok)
	assert.Equal(t, "uses } and { inside", got["note"])
	assert.Equal(t, `it's "fine"`, got["quote"])
}

func TestExtract_Array(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain", `[{"id": "r1"}, {"id": "r2"}]`, 2},
		{"fenced", fenced + "json\n[{\"id\": \"r1\"}]\n" + fenced, 1},
		{"wrapped in object", `{"requirements": [{"id": "r1"}, {"id": "r2"}, {"id": "r3"}]}`, 3},
		{"missing comma between objects", `[{"id": "r1"} {"id": "r2"}]`, 2},
		{"trailing comma", `["a", "b",]`, 2},
		{"brace in prose before array", "Requirements below {see policy 4.2}:\n[{\"id\": \"R1\", \"title\": \"KYC\"}]", 1},
		{"array inside multi-field object", `{"requirements": [{"id":"R1","title":"KYC"}], "count": 1}`, 1},
		{"unwrap after unparsable bracket", "[draft] {\"items\": [1, 2]}", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractArray(tt.text)
			require.True(t, ok)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestExtract_NoJSON(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"I could not find anything relevant.",
		"{ this is not json at all",
		"[unterminated",
		"} backwards {",
		fenced + "\nplain text\n" + fenced,
	} {
		v, ok := Extract(text, ShapeObject)
		assert.False(t, ok, text)
		assert.Nil(t, v, text)
	}
}

func TestExtract_ShapeMismatch(t *testing.T) {
	_, ok := Extract(`["a", "b"]`, ShapeObject)
	assert.False(t, ok)

	_, ok = Extract(`{"a": 1, "b": 2}`, ShapeArray)
	assert.False(t, ok)

	v, ok := Extract(`["a"]`, ShapeAny)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a"}, v)
}

func TestExtract_Deterministic(t *testing.T) {
	text := "Sure, {intent: 'analyze', confidence: 0.9,}"
	first, ok := Extract(text, ShapeObject)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := Extract(text, ShapeObject)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestExtract_TrailingCommaAfterPreamble(t *testing.T) {
	v, ok := ExtractObject("Here is the JSON:\n{\"a\": 1,}")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, v)
}

func TestRepairs(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, removeTrailingCommas(`{"a": 1,}`))
	assert.Equal(t, `{"a": "x,}"}`, removeTrailingCommas(`{"a": "x,}"}`))
	assert.Equal(t, `{"a": "it\"s"}`, singleToDoubleQuotes(`{'a': 'it"s'}`))
	assert.Equal(t, `{"a": "don't"}`, singleToDoubleQuotes(`{"a": "don't"}`))
	assert.Equal(t, `{"a": 1, "b_2": true}`, quoteUnquotedKeys(`{a: 1, b_2: true}`))
	assert.Equal(t, `[true, false]`, quoteUnquotedKeys(`[true, false]`))
	assert.Equal(t, `[{},{}]`, insertMissingCommas(`[{}{}]`))
	assert.Equal(t, "{\"a\": 1,\n\"b\": 2}", insertMissingCommas("{\"a\": 1\n\"b\": 2}"))
}

func TestParser_LogsOnFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tracer := observability.NewMockTracer()
	p := NewParser(zap.New(core), tracer)

	long := strings.Repeat("x", 800)
	v, ok := p.Parse("classifier", long, ShapeObject)
	assert.False(t, ok)
	assert.Nil(t, v)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "structured output parse failed", entries[0].Message)
	assert.Len(t, entries[0].ContextMap()["input"], diagnosticLimit)
	assert.Equal(t, "classifier", entries[0].ContextMap()["source"])
	assert.Len(t, tracer.GetMetrics(observability.MetricParseFailures), 1)

	m, ok := p.ParseObject("classifier", `{"intent": "general"}`)
	require.True(t, ok)
	assert.Equal(t, "general", m["intent"])
	assert.Len(t, logs.All(), 1)
}

func TestParser_LogSnippetKeepsRunesWhole(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewParser(zap.New(core), nil)

	_, ok := p.Parse("writer", "a"+strings.Repeat("é", 400), ShapeObject)
	require.False(t, ok)

	entries := logs.All()
	require.Len(t, entries, 1)
	snippet, _ := entries[0].ContextMap()["input"].(string)
	assert.True(t, utf8.ValidString(snippet))
	assert.Len(t, snippet, diagnosticLimit-1)
}
