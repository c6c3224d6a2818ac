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

// Package types contains the model-call types shared by pkg/llm, its
// backends and pkg/agent. It exists to break the import cycle between the
// gateway and the tool-calling loop.
package types

import (
	"context"
	"time"

	"github.com/teradata-labs/dealdraft/pkg/shuttle"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool invocation by the LLM.
type ToolCall struct {
	// ID is a unique identifier for this tool call
	ID string

	// Name is the tool name
	Name string

	// Input contains the tool parameters as JSON
	Input map[string]interface{}
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is the message sender (user, assistant, tool)
	Role string

	// Content is the message text
	Content string

	// ToolCalls contains tool invocations (if role is assistant)
	ToolCalls []ToolCall

	// ToolUseID is the ID of the tool_use block this result answers (role tool)
	ToolUseID string

	// ToolName is the tool that produced this result (role tool)
	ToolName string

	// Timestamp when the message was created
	Timestamp time.Time
}

// Usage tracks LLM token usage and costs.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// LLMResponse represents a response from the LLM.
type LLMResponse struct {
	// Content is the text response
	Content string

	// ToolCalls contains requested tool executions
	ToolCalls []ToolCall

	// StopReason indicates why the LLM stopped
	StopReason string

	// Usage tracks token usage
	Usage Usage

	// Metadata contains provider-specific metadata
	Metadata map[string]interface{}
}

// ChatRequest is a single provider invocation.
type ChatRequest struct {
	// Caller labels the call for tracing. It is not sent to the backend.
	Caller string

	// System is the system prompt, sent out of band where the backend allows.
	System string

	Messages []Message

	// Tools is nil for plain-text calls.
	Tools []shuttle.Tool

	// Model overrides the provider's default model when set.
	Model string

	// Temperature is nil to use the provider default.
	Temperature *float64

	// MaxTokens is 0 to use the provider default.
	MaxTokens int
}

// LLMProvider defines the interface for LLM providers.
type LLMProvider interface {
	// Chat sends a conversation to the LLM and returns the response
	Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error)

	// Name returns the provider name
	Name() string

	// Model returns the default model identifier
	Model() string
}

// TokenCallback is called for each token/chunk during streaming.
// Implementations should be lightweight and non-blocking.
type TokenCallback func(token string)

// StreamingLLMProvider extends LLMProvider with token streaming support.
type StreamingLLMProvider interface {
	LLMProvider

	// ChatStream streams chunks as they are generated and returns the
	// complete response after the stream finishes. The callback is called
	// synchronously.
	ChatStream(ctx context.Context, req *ChatRequest, tokenCallback TokenCallback) (*LLMResponse, error)
}

// ToolCallingProvider is implemented by providers that can report whether
// native tool calling is available for their configured model.
type ToolCallingProvider interface {
	SupportsToolCalling() bool
}

// SupportsStreaming checks if a provider supports token streaming.
func SupportsStreaming(provider LLMProvider) bool {
	_, ok := provider.(StreamingLLMProvider)
	return ok
}

// SupportsToolCalling reports native tool calling. Providers that do not
// implement ToolCallingProvider are assumed not to support it.
func SupportsToolCalling(provider LLMProvider) bool {
	tc, ok := provider.(ToolCallingProvider)
	return ok && tc.SupportsToolCalling()
}

// Float64 returns a pointer to v, for ChatRequest.Temperature.
func Float64(v float64) *float64 {
	return &v
}
