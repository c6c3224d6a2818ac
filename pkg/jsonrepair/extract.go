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

// Package jsonrepair recovers structured data from free-form model output.
//
// Models wrap JSON in code fences, prepend chatter, trail commas, or use
// single quotes. Extract tries progressively looser strategies and a fixed
// sequence of textual repairs, and reports failure instead of panicking.
// Every function here is pure and deterministic.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Shape is the top-level JSON value a caller expects.
type Shape int

const (
	// ShapeAny accepts an object or an array, whichever opens first.
	ShapeAny Shape = iota
	// ShapeObject expects a JSON object.
	ShapeObject
	// ShapeArray expects a JSON array, anchored at the first '['. When no
	// array parses there, an object holding exactly one array field is
	// unwrapped to that array.
	ShapeArray
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	default:
		return "any"
	}
}

// wrapperTags are checked in order; the first present wins.
var wrapperTags = []string{"json", "output"}

// preambles are stripped from the start of the text, case-insensitively,
// repeatedly until none match.
var preambles = []string{
	"here is the json",
	"here's the json",
	"here is the result",
	"here's the result",
	"here is the output",
	"here you go",
	"sure,",
	"sure!",
	"sure.",
	"certainly,",
	"certainly!",
	"certainly.",
	"of course,",
	"okay,",
	"ok,",
	"output:",
	"result:",
	"response:",
	"json:",
	"json",
	":",
}

// fence is a markdown code fence (three backticks).
const fence = "\x60\x60\x60"

var fenceRe = regexp.MustCompile("(?s)" + fence + "[a-zA-Z0-9_-]*[ \t]*\r?\n?(.*?)" + fence)

// Extract returns the first JSON value of the requested shape found in text.
// It returns nil, false when nothing parses, even after repair.
func Extract(text string, shape Shape) (interface{}, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	for _, tag := range wrapperTags {
		if inner, ok := firstTag(text, tag); ok {
			if v, ok := extractFrom(inner, shape); ok {
				return v, true
			}
			break
		}
	}

	return extractFrom(text, shape)
}

// ExtractObject is Extract with ShapeObject, typed.
func ExtractObject(text string) (map[string]interface{}, bool) {
	v, ok := Extract(text, ShapeObject)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

// ExtractArray is Extract with ShapeArray, typed.
func ExtractArray(text string) ([]interface{}, bool) {
	v, ok := Extract(text, ShapeArray)
	if !ok {
		return nil, false
	}
	a, ok := v.([]interface{})
	return a, ok
}

func extractFrom(text string, shape Shape) (interface{}, bool) {
	if body := stripFences(text); openingIndex(body, shape) >= 0 {
		text = body
	}
	text = stripPreambles(text)

	start := openingIndex(text, shape)
	if start < 0 {
		return nil, false
	}
	if v, ok := extractAt(text, start, shape); ok {
		return v, true
	}

	// arrays may arrive wrapped in an object
	if shape == ShapeArray {
		if o := strings.IndexByte(text, '{'); o >= 0 && o != start {
			return extractAt(text, o, shape)
		}
	}
	return nil, false
}

// extractAt tries the bracket opening at text[start]: the depth-matched
// span, then the slice to the last matching closer, each verbatim and then
// repaired.
func extractAt(text string, start int, shape Shape) (interface{}, bool) {
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}

	var candidates []string
	if end := matchingClose(text, start); end > start {
		candidates = append(candidates, text[start:end+1])
	}
	if last := strings.LastIndexByte(text, closer); last > start {
		if slice := text[start : last+1]; len(candidates) == 0 || slice != candidates[0] {
			candidates = append(candidates, slice)
		}
	}

	for _, c := range candidates {
		if v, ok := decode(c, shape); ok {
			return v, true
		}
	}
	for _, c := range candidates {
		if v, ok := repairAndDecode(c, shape); ok {
			return v, true
		}
	}
	return nil, false
}

// stripFences returns the body of the first fenced block, if any. An
// unterminated opening fence is dropped.
func stripFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if idx := strings.Index(text, fence); idx >= 0 {
		rest := text[idx+len(fence):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		return strings.TrimSpace(rest)
	}
	return text
}

func stripPreambles(text string) string {
	for {
		trimmed := false
		lower := strings.ToLower(text)
		for _, p := range preambles {
			if strings.HasPrefix(lower, p) {
				text = strings.TrimSpace(text[len(p):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return text
		}
	}
}

func openingIndex(text string, shape Shape) int {
	switch shape {
	case ShapeObject:
		return strings.IndexByte(text, '{')
	case ShapeArray:
		if a := strings.IndexByte(text, '['); a >= 0 {
			return a
		}
		return strings.IndexByte(text, '{')
	default:
		return strings.IndexAny(text, "{[")
	}
}

// matchingClose scans from text[start] tracking nesting depth, skipping over
// string literals and escapes, and returns the index of the matching close
// bracket or -1.
func matchingClose(text string, start int) int {
	depth := 0
	inString := false
	var quote byte
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}

		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decode(candidate string, shape Shape) (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, false
	}
	return conform(v, shape)
}

func conform(v interface{}, shape Shape) (interface{}, bool) {
	switch shape {
	case ShapeObject:
		m, ok := v.(map[string]interface{})
		return m, ok
	case ShapeArray:
		switch t := v.(type) {
		case []interface{}:
			return t, true
		case map[string]interface{}:
			if len(t) == 1 {
				for _, inner := range t {
					if arr, ok := inner.([]interface{}); ok {
						return arr, true
					}
				}
			}
		}
		return nil, false
	default:
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return v, true
		}
		return nil, false
	}
}
