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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2,
	}
}

func flaky(n int, final string) *MockProvider {
	p := &MockProvider{}
	for i := 0; i < n; i++ {
		p.Responses = append(p.Responses, MockResponse{
			Err: &TransientError{Provider: "mock", StatusCode: 529, Err: errors.New("overloaded")},
		})
	}
	p.Responses = append(p.Responses, MockResponse{Content: final})
	return p
}

func TestGateway_RetrySucceedsAfterNTransientFailures(t *testing.T) {
	for n := 0; n <= 3; n++ {
		provider := flaky(n, "ok")
		sink := observability.NewMemoryUsageSink()
		gw := NewGateway(GatewayConfig{
			Provider: provider,
			Retry:    fastRetry(4),
			Usage:    sink,
			Logger:   zaptest.NewLogger(t),
		})

		resp, err := gw.Call(context.Background(), &CallRequest{Caller: "test", Prompt: "hi"})
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, "ok", resp.Text)
		assert.Equal(t, n+1, resp.Attempts)
		assert.Equal(t, n+1, provider.CallCount())

		recs, _ := sink.Records(context.Background())
		require.Len(t, recs, 1, "one usage record per call regardless of attempts")
		assert.Equal(t, n+1, recs[0].Attempts)
		assert.True(t, recs[0].Success)
	}
}

func TestGateway_RetryBoundedByCap(t *testing.T) {
	provider := flaky(10, "never")
	sink := observability.NewMemoryUsageSink()
	gw := NewGateway(GatewayConfig{Provider: provider, Retry: fastRetry(3), Usage: sink, Logger: zaptest.NewLogger(t)})

	_, err := gw.Call(context.Background(), &CallRequest{Caller: "test", Prompt: "hi"})
	require.Error(t, err)

	var exhausted *RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)

	var transient *TransientError
	assert.True(t, errors.As(err, &transient), "last transient error stays reachable")
	assert.Equal(t, 529, transient.StatusCode)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, provider.CallCount())

	recs, _ := sink.Records(context.Background())
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Success)
	assert.Contains(t, recs[0].Error, "overloaded")
}

func TestGateway_FatalNotRetried(t *testing.T) {
	provider := &MockProvider{Responses: []MockResponse{
		{Err: &FatalError{Provider: "mock", StatusCode: 401, Err: errors.New("bad key")}},
		{Content: "unreachable"},
	}}
	gw := NewGateway(GatewayConfig{Provider: provider, Retry: fastRetry(4), Logger: zaptest.NewLogger(t)})

	_, err := gw.Call(context.Background(), &CallRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, 1, provider.CallCount())
}

func TestGateway_UnclassifiedErrorsAreTransient(t *testing.T) {
	provider := &MockProvider{Responses: []MockResponse{
		{Err: errors.New("connection reset by peer")},
		{Content: "ok"},
	}}
	gw := NewGateway(GatewayConfig{Provider: provider, Retry: fastRetry(2), Logger: zaptest.NewLogger(t)})

	resp, err := gw.Call(context.Background(), &CallRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Attempts)
}

func TestGateway_CancelledContextNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &MockProvider{Handler: func(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
		cancel()
		return nil, errors.New("interrupted")
	}}
	gw := NewGateway(GatewayConfig{Provider: provider, Retry: fastRetry(4), Logger: zaptest.NewLogger(t)})

	_, err := gw.Call(ctx, &CallRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.CallCount())
}

func TestGateway_PerAttemptTimeoutIsTransient(t *testing.T) {
	calls := 0
	provider := &MockProvider{Handler: func(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &types.LLMResponse{Content: "second try"}, nil
	}}
	gw := NewGateway(GatewayConfig{
		Provider: provider,
		Retry:    fastRetry(3),
		Timeout:  20 * time.Millisecond,
		Logger:   zaptest.NewLogger(t),
	})

	resp, err := gw.Call(context.Background(), &CallRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "second try", resp.Text)
	assert.Equal(t, 2, resp.Attempts)
}

func TestGateway_RequestShape(t *testing.T) {
	provider := NewMockProvider("answer")
	gw := NewGateway(GatewayConfig{Provider: provider})

	_, err := gw.Call(context.Background(), &CallRequest{
		Caller:      "classifier",
		System:      "sys",
		Prompt:      "question",
		Model:       "override",
		Temperature: types.Float64(0.3),
		MaxTokens:   64,
	})
	require.NoError(t, err)

	req := provider.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "classifier", req.Caller)
	assert.Equal(t, "sys", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, types.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "question", req.Messages[0].Content)
	assert.Equal(t, "override", req.Model)
	assert.InDelta(t, 0.3, *req.Temperature, 1e-9)
	assert.Equal(t, 64, req.MaxTokens)
}

type silentProvider struct{}

func (silentProvider) Chat(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
	return &types.LLMResponse{Content: "a reply of some length"}, nil
}
func (silentProvider) Name() string  { return "silent" }
func (silentProvider) Model() string { return "claude-sonnet-4-5" }

func TestGateway_EstimatesMissingUsage(t *testing.T) {
	sink := observability.NewMemoryUsageSink()
	gw := NewGateway(GatewayConfig{Provider: silentProvider{}, Usage: sink, Counter: NewApproxTokenCounter()})

	resp, err := gw.Call(context.Background(), &CallRequest{Caller: "writer", Prompt: strings.Repeat("word ", 40)})
	require.NoError(t, err)
	assert.Positive(t, resp.InputTokens)
	assert.Positive(t, resp.OutputTokens)
	assert.Positive(t, resp.CostUSD)

	recs, _ := sink.Records(context.Background())
	require.Len(t, recs, 1)
	assert.Equal(t, "writer", recs[0].Caller)
	assert.Equal(t, "silent", recs[0].Provider)
	assert.Equal(t, "claude-sonnet-4-5", recs[0].Model)
	assert.Equal(t, resp.InputTokens, recs[0].InputTokens)
}

func TestGateway_TracesCompletion(t *testing.T) {
	tracer := observability.NewMockTracer()
	gw := NewGateway(GatewayConfig{Provider: NewMockProvider("ok"), Tracer: tracer})

	_, err := gw.Call(context.Background(), &CallRequest{Caller: "analyst", Prompt: "hi"})
	require.NoError(t, err)

	span := tracer.GetSpanByName(observability.SpanLLMCompletion)
	require.NotNil(t, span)
	assert.Equal(t, "analyst", span.Attributes[observability.AttrLLMCaller])
	assert.Equal(t, observability.StatusOK, span.Status)
	assert.Len(t, tracer.GetMetrics(observability.MetricLLMCalls), 1)
}

func TestGateway_TracesErrorCategory(t *testing.T) {
	tracer := observability.NewMockTracer()
	provider := &MockProvider{Responses: []MockResponse{
		{Err: &FatalError{Provider: "mock", StatusCode: 403, Err: errors.New("forbidden")}},
	}}
	gw := NewGateway(GatewayConfig{Provider: provider, Tracer: tracer, Retry: fastRetry(2)})

	_, err := gw.Call(context.Background(), &CallRequest{Caller: "writer", Prompt: "hi"})
	require.Error(t, err)

	span := tracer.GetSpanByName(observability.SpanLLMCompletion)
	require.NotNil(t, span)
	assert.Equal(t, observability.KindLLM, span.Kind)
	assert.Equal(t, observability.StatusError, span.Status)
	assert.Equal(t, "fatal", span.Attributes[observability.AttrErrorType])

	errs := tracer.GetMetrics(observability.MetricLLMErrors)
	require.Len(t, errs, 1)
	assert.Equal(t, "fatal", errs[0].Labels[observability.AttrErrorType])
}

func TestGateway_SupportsTools(t *testing.T) {
	assert.False(t, NewGateway(GatewayConfig{Provider: NewMockProvider()}).SupportsTools())
	assert.True(t, NewGateway(GatewayConfig{Provider: &MockProvider{ToolCalling: true}}).SupportsTools())
}

func TestGateway_StreamDeliversChunks(t *testing.T) {
	provider := &MockStreamingProvider{MockProvider: NewMockProvider("one two three")}
	gw := NewGateway(GatewayConfig{Provider: provider})
	require.True(t, gw.SupportsStreaming())

	var chunks []string
	resp, err := gw.Stream(context.Background(), &CallRequest{Prompt: "hi"}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
	assert.Equal(t, "one two three", resp.Text)
}

func TestGateway_StreamFallsBackToSingleChunk(t *testing.T) {
	gw := NewGateway(GatewayConfig{Provider: NewMockProvider("whole answer")})
	require.False(t, gw.SupportsStreaming())

	var chunks []string
	resp, err := gw.Stream(context.Background(), &CallRequest{Prompt: "hi"}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"whole answer"}, chunks)
	assert.Equal(t, "whole answer", resp.Text)
}

func TestGateway_StreamCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &MockStreamingProvider{MockProvider: NewMockProvider("a b c d e")}
	gw := NewGateway(GatewayConfig{Provider: provider, Retry: fastRetry(3)})

	var chunks []string
	resp, err := gw.Stream(ctx, &CallRequest{Prompt: "hi"}, func(s string) {
		chunks = append(chunks, s)
		if len(chunks) == 2 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.Nil(t, resp, "no partial response on error")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, chunks, 2)
	assert.Equal(t, 1, provider.CallCount())
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 250*time.Millisecond, cfg.delay(1))
	assert.Equal(t, 500*time.Millisecond, cfg.delay(2))
	assert.Equal(t, time.Second, cfg.delay(3))
	assert.Equal(t, 8*time.Second, cfg.delay(10))

	assert.Equal(t, 1, RetryConfig{}.normalized().MaxAttempts)
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("x")
	for _, status := range []int{0, 408, 409, 429, 500, 502, 503, 529} {
		assert.True(t, IsTransient(ClassifyStatus("p", status, base)), "status %d", status)
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		assert.True(t, IsFatal(ClassifyStatus("p", status, base)), "status %d", status)
	}
	assert.ErrorIs(t, ClassifyStatus("p", 500, base), base)
}
