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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/dealdraft/pkg/observability"
)

func searchTool() *MockTool {
	return &MockTool{
		MockName: "search_documents",
		MockSchema: NewObjectSchema("search", map[string]*JSONSchema{
			"query":  NewStringSchema("query text"),
			"corpus": NewStringSchema("corpus").WithEnum("uploaded", "policy"),
		}, []string{"query"}),
	}
}

func TestExecutor_Execute(t *testing.T) {
	reg := NewRegistry()
	tool := searchTool()
	require.NoError(t, reg.Register(tool))

	result, err := NewExecutor(reg).Execute(context.Background(), "search_documents", map[string]interface{}{"query": "loan"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "mock result", result.Text())
	assert.Equal(t, 1, tool.ExecuteCount())
	assert.Equal(t, "loan", tool.LastParams()["query"])
}

func TestExecutor_UnknownToolIsAResult(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(searchTool()))

	// near-miss names do not resolve
	for _, name := range []string{"searchDocuments", "search-documents", "SEARCH_DOCUMENTS", ""} {
		result, err := NewExecutor(reg).Execute(context.Background(), name, nil)
		require.NoError(t, err, name)
		assert.False(t, result.Success)
		assert.Equal(t, ErrCodeUnknownTool, result.Error.Code)
		assert.Equal(t, "unknown tool: "+name, result.Text())
	}
}

func TestExecutor_InvalidParams(t *testing.T) {
	reg := NewRegistry()
	tool := searchTool()
	require.NoError(t, reg.Register(tool))
	exec := NewExecutor(reg)

	result, err := exec.Execute(context.Background(), "search_documents", map[string]interface{}{"corpus": "uploaded"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ErrCodeInvalidParams, result.Error.Code)
	assert.Contains(t, result.Text(), "invalid arguments for search_documents")
	assert.Equal(t, 0, tool.ExecuteCount())

	result, err = exec.Execute(context.Background(), "search_documents", map[string]interface{}{"query": "x", "corpus": "web"})
	require.NoError(t, err)
	assert.False(t, result.Success)

	result, err = NewExecutor(reg, WithoutValidation()).Execute(context.Background(), "search_documents", map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestExecutor_ToolErrorIsAResult(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&MockTool{
		MockName: "broken",
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*Result, error) {
			return nil, errors.New("intentional error")
		},
	}))

	result, err := NewExecutor(reg).Execute(context.Background(), "broken", map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "tool error: intentional error", result.Text())
}

func TestExecutor_CancelledContext(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(searchTool()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(reg).Execute(ctx, "search_documents", map[string]interface{}{"query": "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_NilResultBecomesSuccess(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&MockTool{
		MockName: "quiet",
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*Result, error) {
			return nil, nil
		},
	}))

	result, err := NewExecutor(reg).Execute(context.Background(), "quiet", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Text())
}

func TestResultText_StructuredData(t *testing.T) {
	r := &Result{Success: true, Data: map[string]interface{}{"count": 2}}
	assert.JSONEq(t, `{"count":2}`, r.Text())
	assert.Empty(t, (*Result)(nil).Text())
}

func TestInstrumentedExecutor_Spans(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(searchTool()))
	tracer := observability.NewMockTracer()
	exec := NewInstrumentedExecutor(NewExecutor(reg), tracer, zaptest.NewLogger(t))

	_, err := exec.Execute(context.Background(), "search_documents", map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), "missing", nil)
	require.NoError(t, err)

	spans := tracer.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, observability.StatusOK, spans[0].Status)
	assert.Equal(t, observability.StatusError, spans[1].Status)
	assert.Equal(t, ErrCodeUnknownTool, spans[1].Attributes[observability.AttrErrorType])
	assert.Len(t, tracer.GetMetrics(observability.MetricToolExecutions), 2)
	assert.Len(t, tracer.GetMetrics(observability.MetricToolErrors), 1)
}
