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

package communication

import (
	"context"
	"strings"

	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
)

// AskAgentToolName is the name agents use to query a colleague.
const AskAgentToolName = "ask_agent"

// AskAgentTool exposes Bus.Ask to the tool-calling loop. The sender is the
// agent whose loop is running, taken from the context.
type AskAgentTool struct {
	bus *Bus
	// target when the call names no agent
	defaultAgent string
}

// NewAskAgentTool creates the tool. defaultAgent answers calls that do not
// name an agent.
func NewAskAgentTool(bus *Bus, defaultAgent string) *AskAgentTool {
	return &AskAgentTool{bus: bus, defaultAgent: defaultAgent}
}

// Name implements shuttle.Tool.
func (t *AskAgentTool) Name() string {
	return AskAgentToolName
}

// Description implements shuttle.Tool.
func (t *AskAgentTool) Description() string {
	return "Ask another agent a question and wait for the answer. Use it for figures or policy facts you do not have."
}

// InputSchema implements shuttle.Tool.
func (t *AskAgentTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema("Question for a colleague", map[string]*shuttle.JSONSchema{
		"question": shuttle.NewStringSchema("The question to ask"),
		"agent":    shuttle.NewStringSchema("Agent to ask, e.g. analyst or compliance. Defaults to " + t.defaultAgent),
		"context":  shuttle.NewStringSchema("Optional context to share with the question"),
	}, []string{"question"})
}

// Execute implements shuttle.Tool. Unanswerable questions come back as
// inline text, never as errors.
func (t *AskAgentTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	question, _ := params["question"].(string)
	to, _ := params["agent"].(string)
	shared, _ := params["context"].(string)

	to = strings.ToLower(strings.TrimSpace(to))
	if to == "" {
		to = t.defaultAgent
	}
	from := session.AgentIDFromContext(ctx)
	if from == "" {
		from = SenderUser
	}

	msg := t.bus.Query(ctx, from, to, question, shared)
	return &shuttle.Result{
		Success:  true,
		Data:     msg.Response,
		Metadata: map[string]interface{}{"message_id": msg.ID, "agent": to},
	}, nil
}

var _ shuttle.Tool = (*AskAgentTool)(nil)
