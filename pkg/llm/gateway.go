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

// Package llm is the single choke point for model calls. The Gateway adds
// retry with exponential backoff, a per-attempt timeout, rate limiting,
// tracing and one usage record per call on top of any types.LLMProvider.
//
// Backends live in subpackages (anthropic, gemini) and are selected by
// factory. Tests use MockProvider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// CallRequest is one logical model call. Either Messages or Prompt is set;
// Prompt is sent as a single user message.
type CallRequest struct {
	// Caller labels the call in usage records and traces ("classifier",
	// "analyst", ...).
	Caller string

	Model       string
	Temperature *float64
	MaxTokens   int
	System      string

	Prompt   string
	Messages []types.Message

	// Tools enables native tool calling when the provider supports it.
	Tools []shuttle.Tool
}

// CallResponse is the result of a successful call.
type CallResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	ToolCalls    []types.ToolCall
	StopReason   string

	// Attempts is the number of backend invocations, including the one
	// that succeeded.
	Attempts int
	Latency  time.Duration
}

// GatewayConfig configures a Gateway. Only Provider is required.
type GatewayConfig struct {
	Provider types.LLMProvider
	Retry    RetryConfig

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	Usage   observability.UsageSink
	Tracer  observability.Tracer
	Limiter *RateLimiter
	Counter *TokenCounter
	Logger  *zap.Logger
}

// Gateway invokes a model backend with bounded retry. Safe for concurrent
// use if the provider and sink are.
type Gateway struct {
	raw      types.LLMProvider
	provider *InstrumentedProvider
	retry    RetryConfig
	timeout  time.Duration
	usage    observability.UsageSink
	limiter  *RateLimiter
	counter  *TokenCounter
	logger   *zap.Logger
}

// NewGateway creates a gateway. A zero Retry uses DefaultRetryConfig.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Usage == nil {
		cfg.Usage = observability.NewMemoryUsageSink()
	}
	if cfg.Counter == nil {
		cfg.Counter = GetTokenCounter()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Gateway{
		raw:      cfg.Provider,
		provider: NewInstrumentedProvider(cfg.Provider, cfg.Tracer),
		retry:    cfg.Retry.normalized(),
		timeout:  cfg.Timeout,
		usage:    cfg.Usage,
		limiter:  cfg.Limiter,
		counter:  cfg.Counter,
		logger:   cfg.Logger,
	}
}

// Provider returns the wrapped backend.
func (g *Gateway) Provider() types.LLMProvider {
	return g.raw
}

// Usage returns the sink receiving usage records.
func (g *Gateway) Usage() observability.UsageSink {
	return g.usage
}

// SupportsTools reports whether the backend supports native tool calling.
func (g *Gateway) SupportsTools() bool {
	return types.SupportsToolCalling(g.raw)
}

// SupportsStreaming reports whether Stream delivers incremental chunks.
func (g *Gateway) SupportsStreaming() bool {
	return types.SupportsStreaming(g.raw)
}

// Call invokes the backend, retrying transient failures.
//
// Fatal errors and context cancellation return immediately. When every
// attempt fails transiently the error is a *RetryExhaustedError wrapping the
// last *TransientError.
func (g *Gateway) Call(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	chatReq := g.chatRequest(req)
	start := time.Now()

	resp, attempts, err := g.withRetry(ctx, req.Caller, func(ctx context.Context) (*types.LLMResponse, error) {
		return g.provider.Chat(ctx, chatReq)
	}, nil)

	return g.complete(ctx, req, chatReq, resp, attempts, time.Since(start), err)
}

// Stream invokes the backend and delivers text chunks to onChunk as they
// arrive. Providers that cannot stream are called once through Call and the
// whole text is delivered as a single chunk.
//
// A failed attempt is only retried if it delivered no chunks. On error no
// response is returned, so partial text never leaves the gateway except
// through onChunk.
func (g *Gateway) Stream(ctx context.Context, req *CallRequest, onChunk func(string)) (*CallResponse, error) {
	if !g.SupportsStreaming() {
		resp, err := g.Call(ctx, req)
		if err != nil {
			return nil, err
		}
		if onChunk != nil && resp.Text != "" {
			onChunk(resp.Text)
		}
		return resp, nil
	}

	chatReq := g.chatRequest(req)
	start := time.Now()
	delivered := false

	resp, attempts, err := g.withRetry(ctx, req.Caller, func(ctx context.Context) (*types.LLMResponse, error) {
		resp, err := g.provider.ChatStream(ctx, chatReq, func(chunk string) {
			if ctx.Err() != nil {
				return
			}
			delivered = true
			if onChunk != nil {
				onChunk(chunk)
			}
		})
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		return resp, err
	}, func() bool { return !delivered })

	return g.complete(ctx, req, chatReq, resp, attempts, time.Since(start), err)
}

// withRetry runs call until it succeeds, fails fatally, or runs out of
// attempts. canRetry, when set, vetoes further attempts.
func (g *Gateway) withRetry(
	ctx context.Context,
	caller string,
	call func(context.Context) (*types.LLMResponse, error),
	canRetry func() bool,
) (*types.LLMResponse, int, error) {
	var lastErr error

	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, attempt - 1, err
		}

		resp, err := g.attempt(ctx, call)
		if err == nil {
			if attempt > 1 {
				g.logger.Info("llm retry succeeded",
					zap.String("caller", caller),
					zap.Int("attempt", attempt))
			}
			return resp, attempt, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, attempt, fmt.Errorf("llm call cancelled (attempt %d/%d): %w", attempt, g.retry.MaxAttempts, ctxErr)
		}
		if IsFatal(err) {
			g.logger.Error("llm call failed fatally",
				zap.String("caller", caller),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, attempt, err
		}

		lastErr = asTransient(g.raw.Name(), err)
		if canRetry != nil && !canRetry() {
			g.logger.Warn("llm stream failed after partial output, not retrying",
				zap.String("caller", caller),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, attempt, lastErr
		}
		if attempt == g.retry.MaxAttempts {
			break
		}

		delay := g.retry.delay(attempt)
		g.logger.Warn("llm call failed, retrying",
			zap.String("caller", caller),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.retry.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, attempt, fmt.Errorf("llm call cancelled during retry (attempt %d/%d): %w", attempt, g.retry.MaxAttempts, ctx.Err())
		case <-time.After(delay):
		}
	}

	g.logger.Error("llm retries exhausted",
		zap.String("caller", caller),
		zap.Int("attempts", g.retry.MaxAttempts),
		zap.Error(lastErr))
	return nil, g.retry.MaxAttempts, &RetryExhaustedError{Attempts: g.retry.MaxAttempts, Last: lastErr}
}

func (g *Gateway) attempt(ctx context.Context, call func(context.Context) (*types.LLMResponse, error)) (*types.LLMResponse, error) {
	if g.timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := call(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, &TransientError{Provider: g.raw.Name(), Err: fmt.Errorf("attempt timed out after %v: %w", g.timeout, err)}
	}
	return resp, err
}

func (g *Gateway) chatRequest(req *CallRequest) *types.ChatRequest {
	messages := req.Messages
	if len(messages) == 0 && req.Prompt != "" {
		messages = []types.Message{{Role: types.RoleUser, Content: req.Prompt, Timestamp: time.Now()}}
	}
	return &types.ChatRequest{
		Caller:      req.Caller,
		System:      req.System,
		Messages:    messages,
		Tools:       req.Tools,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// complete fills missing usage, appends the usage record and builds the
// response.
func (g *Gateway) complete(
	ctx context.Context,
	req *CallRequest,
	chatReq *types.ChatRequest,
	resp *types.LLMResponse,
	attempts int,
	latency time.Duration,
	callErr error,
) (*CallResponse, error) {
	model := req.Model
	if model == "" {
		model = g.raw.Model()
	}

	rec := observability.UsageRecord{
		Caller:    req.Caller,
		Provider:  g.raw.Name(),
		Model:     model,
		Latency:   latency,
		Attempts:  attempts,
		Success:   callErr == nil,
		Timestamp: time.Now(),
	}

	var out *CallResponse
	if callErr != nil {
		rec.Error = callErr.Error()
	} else {
		usage := resp.Usage
		if usage.InputTokens == 0 && usage.OutputTokens == 0 {
			usage.InputTokens = g.counter.EstimateRequestTokens(chatReq)
			usage.OutputTokens = g.counter.CountTokens(resp.Content)
		}
		if usage.CostUSD == 0 {
			usage.CostUSD = EstimateCost(model, usage.InputTokens, usage.OutputTokens)
		}

		rec.InputTokens = usage.InputTokens
		rec.OutputTokens = usage.OutputTokens
		rec.CostUSD = usage.CostUSD

		out = &CallResponse{
			Text:         strings.TrimSpace(resp.Content),
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			CostUSD:      usage.CostUSD,
			ToolCalls:    resp.ToolCalls,
			StopReason:   resp.StopReason,
			Attempts:     attempts,
			Latency:      latency,
		}
	}

	// detach so a cancelled turn still accounts for what it spent
	if err := g.usage.Record(context.WithoutCancel(ctx), rec); err != nil {
		g.logger.Warn("failed to record llm usage", zap.String("caller", req.Caller), zap.Error(err))
	}

	if callErr != nil {
		return nil, callErr
	}
	return out, nil
}
