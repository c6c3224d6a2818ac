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

package shuttle

import (
	"fmt"
	"strings"
	"unicode"
)

// maxToolNameLen is the shortest limit among supported providers.
const maxToolNameLen = 64

// ConfigurationError reports a mismatch between a declared toolset and the
// registry. It is fatal at startup.
type ConfigurationError struct {
	Agent  string
	Tool   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("tool %q: %s", e.Tool, e.Reason)
	}
	if e.Tool == "" {
		return fmt.Sprintf("agent %q: %s", e.Agent, e.Reason)
	}
	return fmt.Sprintf("agent %q tool %q: %s", e.Agent, e.Tool, e.Reason)
}

// SanitizeToolName maps name onto the character set every provider accepts
// (Anthropic ^[a-zA-Z0-9_-]{1,64}$, Gemini ^[a-zA-Z_][a-zA-Z0-9_-]*$).
// Colons from namespaced names become underscores.
func SanitizeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, ch := range name {
		switch {
		case ch == '_' || ch == '-':
			b.WriteRune(ch)
		case ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch)):
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if c := out[0]; c >= '0' && c <= '9' || c == '-' {
		out = "_" + out
	}
	if len(out) > maxToolNameLen {
		out = out[:maxToolNameLen]
	}
	return out
}

// ValidateToolset checks a declared toolset against the registry: every
// name must be registered verbatim, appear once, and already be valid for
// all providers. The first problem found is returned.
func ValidateToolset(agent string, declared []string, registry *Registry) error {
	seen := make(map[string]bool, len(declared))
	for _, name := range declared {
		if name == "" {
			return &ConfigurationError{Agent: agent, Tool: name, Reason: "empty tool name"}
		}
		if seen[name] {
			return &ConfigurationError{Agent: agent, Tool: name, Reason: "declared twice"}
		}
		seen[name] = true

		if sanitized := SanitizeToolName(name); sanitized != name {
			return &ConfigurationError{
				Agent:  agent,
				Tool:   name,
				Reason: fmt.Sprintf("name is not provider-safe (would be sent as %q)", sanitized),
			}
		}

		if !registry.IsRegistered(name) {
			return &ConfigurationError{Agent: agent, Tool: name, Reason: "declared but not registered"}
		}
	}
	return nil
}
