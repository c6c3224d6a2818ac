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

import "strings"

// repairs run in this order, each on the output of the previous one, with a
// parse attempt after every step.
var repairs = []func(string) string{
	removeTrailingCommas,
	singleToDoubleQuotes,
	quoteUnquotedKeys,
	insertMissingCommas,
}

func repairAndDecode(candidate string, shape Shape) (interface{}, bool) {
	for _, repair := range repairs {
		candidate = repair(candidate)
		if v, ok := decode(candidate, shape); ok {
			return v, true
		}
	}
	return nil, false
}

// stringEnd returns the index just past the string literal opening at s[i].
// An unterminated literal runs to the end of s.
func stringEnd(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipSpace returns the index of the first non-space byte at or after i.
func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			i = end - 1
		case c == ',':
			next := skipSpace(s, i+1)
			if next < len(s) && (s[next] == '}' || s[next] == ']') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			i = end - 1
		case '\'':
			end := stringEnd(s, i)
			b.WriteByte('"')
			for j := i + 1; j < end; j++ {
				switch ch := s[j]; {
				case ch == '\\' && j+1 < end && s[j+1] == '\'':
					b.WriteByte('\'')
					j++
				case ch == '\\' && j+1 < end:
					b.WriteByte(ch)
					b.WriteByte(s[j+1])
					j++
				case ch == '"':
					b.WriteString("\\\"")
				case ch == '\'' && j == end-1:
					// closing quote
				default:
					b.WriteByte(ch)
				}
			}
			b.WriteByte('"')
			i = end - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func quoteUnquotedKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\'':
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			i = end - 1
		case '{', ',':
			b.WriteByte(c)
			start := skipSpace(s, i+1)
			b.WriteString(s[i+1 : start])
			i = start - 1
			if start >= len(s) || !isIdentStart(s[start]) {
				continue
			}
			end := start
			for end < len(s) && isIdentPart(s[end]) {
				end++
			}
			colon := skipSpace(s, end)
			if colon < len(s) && s[colon] == ':' {
				b.WriteByte('"')
				b.WriteString(s[start:end])
				b.WriteByte('"')
				i = end - 1
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// insertMissingCommas adds a comma between a closed value and a following
// value that starts on the next token: "}{", "] [", "}\n\"key\"". A bare
// scalar or string followed by a line break and a new key gets one too.
func insertMissingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	needsComma := func(from int, requireNewline bool) bool {
		next := skipSpace(s, from)
		if next >= len(s) {
			return false
		}
		if requireNewline && !strings.ContainsAny(s[from:next], "\n\r") {
			return false
		}
		switch s[next] {
		case '{', '[', '"':
			return true
		}
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			i = end - 1
			if needsComma(end, true) {
				b.WriteByte(',')
			}
		case c == '}' || c == ']':
			b.WriteByte(c)
			if needsComma(i+1, false) {
				b.WriteByte(',')
			}
		case isIdentPart(c) && (i+1 == len(s) || !isIdentPart(s[i+1])):
			b.WriteByte(c)
			if needsComma(i+1, true) {
				b.WriteByte(',')
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
