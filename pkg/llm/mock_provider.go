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

package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/teradata-labs/dealdraft/pkg/types"
)

// MockResponse is one scripted reply of a MockProvider.
type MockResponse struct {
	Content   string
	ToolCalls []types.ToolCall
	Err       error
	Usage     types.Usage
}

// MockProvider is a scripted LLMProvider for tests. Replies are consumed in
// order and the last one repeats. Handler, when set, takes precedence over
// Responses. Usage is always reported so gateways never need to estimate.
// Thread-safe.
type MockProvider struct {
	ProviderName string
	ModelID      string
	ToolCalling  bool
	Responses    []MockResponse
	Handler      func(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error)

	mu       sync.Mutex
	requests []*types.ChatRequest
}

// NewMockProvider scripts a provider that answers with each text in turn.
func NewMockProvider(texts ...string) *MockProvider {
	p := &MockProvider{}
	for _, t := range texts {
		p.Responses = append(p.Responses, MockResponse{Content: t})
	}
	return p
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Model returns the model identifier.
func (m *MockProvider) Model() string {
	if m.ModelID == "" {
		return "mock-model"
	}
	return m.ModelID
}

// SupportsToolCalling reports the ToolCalling field.
func (m *MockProvider) SupportsToolCalling() bool {
	return m.ToolCalling
}

// Chat returns the next scripted reply.
func (m *MockProvider) Chat(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	handler := m.Handler
	var scripted *MockResponse
	if handler == nil && len(m.Responses) > 0 {
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		r := m.Responses[idx]
		scripted = &r
	}
	m.mu.Unlock()

	var resp *types.LLMResponse
	switch {
	case handler != nil:
		var err error
		resp, err = handler(ctx, req)
		if err != nil {
			return nil, err
		}
	case scripted != nil:
		if scripted.Err != nil {
			return nil, scripted.Err
		}
		resp = &types.LLMResponse{
			Content:   scripted.Content,
			ToolCalls: scripted.ToolCalls,
			Usage:     scripted.Usage,
		}
	default:
		resp = &types.LLMResponse{Content: "mock response"}
	}

	if resp.StopReason == "" {
		resp.StopReason = "end_turn"
		if len(resp.ToolCalls) > 0 {
			resp.StopReason = "tool_use"
		}
	}
	if resp.Usage.InputTokens == 0 && resp.Usage.OutputTokens == 0 {
		resp.Usage.InputTokens = approxTokens(req) + 1
		resp.Usage.OutputTokens = len(resp.Content)/4 + 1
	}
	resp.Usage.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	return resp, nil
}

// CallCount returns the number of Chat invocations.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns every request received, in order.
func (m *MockProvider) Requests() []*types.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *types.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// MockStreamingProvider streams each scripted reply word by word.
type MockStreamingProvider struct {
	*MockProvider
}

// ChatStream delivers the reply in whitespace-separated chunks, checking ctx
// between chunks.
func (m *MockStreamingProvider) ChatStream(ctx context.Context, req *types.ChatRequest, cb types.TokenCallback) (*types.LLMResponse, error) {
	resp, err := m.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, chunk := range strings.SplitAfter(resp.Content, " ") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if chunk != "" && cb != nil {
			cb(chunk)
		}
	}
	return resp, nil
}

func approxTokens(req *types.ChatRequest) int {
	n := len(req.System)
	for _, msg := range req.Messages {
		n += len(msg.Content)
	}
	return n / 4
}

var (
	_ types.LLMProvider          = (*MockProvider)(nil)
	_ types.ToolCallingProvider  = (*MockProvider)(nil)
	_ types.StreamingLLMProvider = (*MockStreamingProvider)(nil)
)
