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
package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

func TestNewClient(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)

	c, err := NewClient(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())
	assert.Equal(t, DefaultModel, c.Model())
	assert.False(t, c.SupportsToolCalling())
	assert.False(t, types.SupportsToolCalling(c))
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "hello"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 2}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), &types.ChatRequest{
		System:   "be brief",
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "STOP", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.InputTokens)
	assert.Equal(t, 2, resp.Usage.OutputTokens)
}

func TestChat_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), &types.ChatRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]types.Message{
		{Role: types.RoleUser, Content: "question"},
		{Role: types.RoleAssistant, Content: "<tool_call>{}</tool_call>"},
		{Role: types.RoleTool, ToolName: "search_documents", Content: "rows"},
		{Role: types.RoleUser, Content: "follow up"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, string(genai.RoleUser), out[0].Role)
	assert.Equal(t, string(genai.RoleModel), out[1].Role)
	// tool result and follow-up merge into one user turn
	assert.Equal(t, string(genai.RoleUser), out[2].Role)
	require.Len(t, out[2].Parts, 2)
	assert.Contains(t, out[2].Parts[0].Text, "Result from search_documents")
}
