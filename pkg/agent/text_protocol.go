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

package agent

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/google/uuid"

	"github.com/teradata-labs/dealdraft/pkg/jsonrepair"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

const (
	toolTag       = "TOOL"
	toolResultTag = "TOOL_RESULT"
)

var toolProtocol = heredoc.Doc(`
	## Tools

	You can call tools. To call one, write a line of the form:

	<TOOL>tool_name: {"arg": "value"}</TOOL>

	You may call several tools in one reply. Results come back in the next
	message as <TOOL_RESULT name="tool_name">...</TOOL_RESULT>. When you have
	what you need, reply with your answer and no TOOL tags.

	Available tools:
`)

// withToolCatalog appends the text-tag protocol and a schema listing to the
// system prompt.
func withToolCatalog(system string, tools []shuttle.Tool) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(strings.TrimRight(system, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(toolProtocol)
	for _, t := range tools {
		fmt.Fprintf(&b, "\n- %s: %s\n", t.Name(), t.Description())
		if schema := t.InputSchema(); schema != nil {
			if data, err := json.Marshal(schema); err == nil {
				fmt.Fprintf(&b, "  arguments schema: %s\n", data)
			}
		}
	}
	return b.String()
}

// parseTextTagCalls splits a reply into visible text and tool calls. Tags
// that fail to parse become calls carrying the parse error, so the model
// hears about them.
func parseTextTagCalls(text string) (string, []pendingCall) {
	bodies := jsonrepair.ExtractTags(text, toolTag)
	visible := jsonrepair.StripTags(text, toolTag)
	if len(bodies) == 0 {
		return visible, nil
	}

	calls := make([]pendingCall, 0, len(bodies))
	for _, body := range bodies {
		id := "tag_" + uuid.New().String()[:8]
		inv, err := jsonrepair.ParseToolInvocation(body)
		if err != nil {
			calls = append(calls, pendingCall{
				ToolCall: types.ToolCall{ID: id, Name: firstWord(body)},
				parseErr: err,
			})
			continue
		}
		calls = append(calls, pendingCall{
			ToolCall:      types.ToolCall{ID: id, Name: inv.Name, Input: inv.Args},
			positional:    inv.Positional,
			hasPositional: inv.HasPositional,
		})
	}
	return visible, calls
}

// formatToolResults renders tool results as a single user message.
func formatToolResults(results []types.Message) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "<%s name=\"%s\">\n%s\n</%s>", toolResultTag, html.EscapeString(r.ToolName), r.Content, toolResultTag)
	}
	return b.String()
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ": {\t\n"); i >= 0 {
		return s[:i]
	}
	return s
}
