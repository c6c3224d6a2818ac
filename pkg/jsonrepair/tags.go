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
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoToolName is returned for an invocation body without a tool name.
var ErrNoToolName = errors.New("tool invocation has no name")

type tagSpan struct {
	start, innerStart, innerEnd, end int
}

// findTags locates <tag ...>...</tag> blocks, matching the tag name
// case-insensitively. A final block missing its closing tag runs to the end
// of text.
func findTags(text, tag string) []tagSpan {
	lower := strings.ToLower(text)
	open := "<" + strings.ToLower(tag)
	closeTag := "</" + strings.ToLower(tag) + ">"

	var spans []tagSpan
	pos := 0
	for pos < len(lower) {
		idx := strings.Index(lower[pos:], open)
		if idx < 0 {
			break
		}
		start := pos + idx
		after := start + len(open)
		if after < len(lower) && lower[after] != '>' && !isSpace(lower[after]) {
			// <json> must not match <jsonl>
			pos = after
			continue
		}
		gt := strings.IndexByte(lower[after:], '>')
		if gt < 0 {
			break
		}
		innerStart := after + gt + 1

		endIdx := strings.Index(lower[innerStart:], closeTag)
		if endIdx < 0 {
			spans = append(spans, tagSpan{start, innerStart, len(text), len(text)})
			break
		}
		innerEnd := innerStart + endIdx
		spans = append(spans, tagSpan{start, innerStart, innerEnd, innerEnd + len(closeTag)})
		pos = innerEnd + len(closeTag)
	}
	return spans
}

// ExtractTags returns the trimmed inner text of every <tag>...</tag> block in
// order of appearance.
func ExtractTags(text, tag string) []string {
	spans := findTags(text, tag)
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, strings.TrimSpace(text[s.innerStart:s.innerEnd]))
	}
	return out
}

// StripTags removes every <tag>...</tag> block and trims the result.
func StripTags(text, tag string) string {
	spans := findTags(text, tag)
	if len(spans) == 0 {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])
		prev = s.end
	}
	b.WriteString(text[prev:])
	return strings.TrimSpace(b.String())
}

func firstTag(text, tag string) (string, bool) {
	spans := findTags(text, tag)
	if len(spans) == 0 {
		return "", false
	}
	return strings.TrimSpace(text[spans[0].innerStart:spans[0].innerEnd]), true
}

// Invocation is a parsed tool call from the text-tag protocol.
type Invocation struct {
	Name string

	// Args holds the object form, name: {"arg": "value"}.
	Args map[string]interface{}

	// Positional holds the single-argument form, name: "value". The caller
	// binds it to the tool's primary parameter.
	Positional    string
	HasPositional bool
}

// ParseToolInvocation parses the body of a tool tag. Accepted forms:
//
//	search_documents: {"query": "EBITDA", "corpus": "uploaded"}
//	search_documents: "EBITDA"
//	search_documents: EBITDA
//	search_documents {"query": "EBITDA"}
//	search_documents
func ParseToolInvocation(body string) (*Invocation, error) {
	body = strings.TrimSpace(body)

	cut := strings.IndexAny(body, ":{ \t\n")
	name := body
	rest := ""
	if cut >= 0 {
		name = body[:cut]
		rest = strings.TrimSpace(body[cut:])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNoToolName
	}

	inv := &Invocation{Name: name, Args: map[string]interface{}{}}
	if rest == "" {
		return inv, nil
	}

	if strings.HasPrefix(rest, "{") {
		args, ok := ExtractObject(rest)
		if !ok {
			return nil, fmt.Errorf("invalid arguments for %s: not a JSON object", name)
		}
		inv.Args = args
		return inv, nil
	}

	inv.Positional = unquote(rest)
	inv.HasPositional = true
	return inv, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if s[0] == '"' {
			if u, err := strconv.Unquote(s); err == nil {
				return u
			}
		}
		return s[1 : len(s)-1]
	}
	return s
}
