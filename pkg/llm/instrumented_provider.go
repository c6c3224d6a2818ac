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
	"fmt"
	"time"

	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// InstrumentedProvider wraps any LLMProvider with an llm.completion span and
// call, latency, token and cost metrics.
type InstrumentedProvider struct {
	provider types.LLMProvider
	tracer   observability.Tracer
}

// NewInstrumentedProvider creates a new instrumented LLM provider.
func NewInstrumentedProvider(provider types.LLMProvider, tracer observability.Tracer) *InstrumentedProvider {
	tracer = observability.OrNoOp(tracer)
	return &InstrumentedProvider{
		provider: provider,
		tracer:   tracer,
	}
}

// Name returns the underlying provider name.
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// Model returns the underlying model identifier.
func (p *InstrumentedProvider) Model() string {
	return p.provider.Model()
}

// SupportsToolCalling forwards the capability of the wrapped provider.
func (p *InstrumentedProvider) SupportsToolCalling() bool {
	return types.SupportsToolCalling(p.provider)
}

// Unwrap returns the wrapped provider.
func (p *InstrumentedProvider) Unwrap() types.LLMProvider {
	return p.provider
}

// Chat sends a conversation to the LLM inside an llm.completion span.
func (p *InstrumentedProvider) Chat(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
	ctx, span := p.startSpan(ctx, observability.SpanLLMCompletion, req)
	defer p.tracer.EndSpan(span)

	start := time.Now()
	resp, err := p.provider.Chat(ctx, req)
	p.finish(span, req, resp, err, time.Since(start))
	return resp, err
}

// ChatStream streams tokens with the same instrumentation as Chat plus
// time-to-first-token. Returns an error if the wrapped provider cannot stream.
func (p *InstrumentedProvider) ChatStream(ctx context.Context, req *types.ChatRequest, tokenCallback types.TokenCallback) (*types.LLMResponse, error) {
	streamingProvider, ok := p.provider.(types.StreamingLLMProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support streaming", p.provider.Name())
	}

	ctx, span := p.startSpan(ctx, observability.SpanLLMStream, req)
	defer p.tracer.EndSpan(span)
	span.SetAttribute("llm.streaming", true)

	start := time.Now()
	chunks := 0
	instrumented := func(token string) {
		if chunks == 0 {
			ttft := time.Since(start)
			span.AddEvent("stream.first_token", map[string]interface{}{"ttft_ms": ttft.Milliseconds()})
			span.SetAttribute("llm.ttft_ms", ttft.Milliseconds())
		}
		chunks++
		if tokenCallback != nil {
			tokenCallback(token)
		}
	}

	resp, err := streamingProvider.ChatStream(ctx, req, instrumented)
	span.SetAttribute("llm.streaming.chunks", chunks)
	p.finish(span, req, resp, err, time.Since(start))
	return resp, err
}

func (p *InstrumentedProvider) model(req *types.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.provider.Model()
}

func (p *InstrumentedProvider) startSpan(ctx context.Context, name string, req *types.ChatRequest) (context.Context, *observability.Span) {
	ctx, span := p.tracer.StartSpan(ctx, name)
	span.SetAttribute(observability.AttrLLMProvider, p.provider.Name())
	span.SetAttribute(observability.AttrLLMModel, p.model(req))
	span.SetAttribute(observability.AttrLLMCaller, req.Caller)
	span.SetAttribute("llm.messages.count", len(req.Messages))
	span.SetAttribute("llm.tools.count", len(req.Tools))
	if len(req.Tools) > 0 {
		names := make([]string, len(req.Tools))
		for i, tool := range req.Tools {
			names[i] = tool.Name()
		}
		span.SetAttribute("llm.tools.names", names)
	}
	return ctx, span
}

func (p *InstrumentedProvider) finish(span *observability.Span, req *types.ChatRequest, resp *types.LLMResponse, err error, duration time.Duration) {
	labels := map[string]string{
		observability.AttrLLMProvider: p.provider.Name(),
		observability.AttrLLMModel:    p.model(req),
		observability.AttrLLMCaller:   req.Caller,
	}

	if err != nil {
		span.RecordError(err)
		errLabels := map[string]string{observability.AttrErrorType: observability.ErrorType(err)}
		for k, v := range labels {
			errLabels[k] = v
		}
		p.tracer.RecordMetric(observability.MetricLLMErrors, 1, errLabels)
		return
	}

	span.SetOK()
	span.SetAttribute("llm.tokens.input", resp.Usage.InputTokens)
	span.SetAttribute("llm.tokens.output", resp.Usage.OutputTokens)
	span.SetAttribute("llm.cost.usd", resp.Usage.CostUSD)
	span.SetAttribute("llm.stop_reason", resp.StopReason)
	span.SetAttribute("llm.duration_ms", duration.Milliseconds())
	span.SetAttribute("llm.content.length", len(resp.Content))
	if len(resp.ToolCalls) > 0 {
		names := make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			names[i] = tc.Name
		}
		span.SetAttribute("llm.tool_calls.names", names)
	}

	p.tracer.RecordMetric(observability.MetricLLMCalls, 1, labels)
	p.tracer.RecordMetric(observability.MetricLLMLatency, float64(duration.Milliseconds()), labels)
	p.tracer.RecordMetric(observability.MetricLLMTokensInput, float64(resp.Usage.InputTokens), labels)
	p.tracer.RecordMetric(observability.MetricLLMTokensOutput, float64(resp.Usage.OutputTokens), labels)
	p.tracer.RecordMetric(observability.MetricLLMCost, resp.Usage.CostUSD, labels)
}

var (
	_ types.LLMProvider          = (*InstrumentedProvider)(nil)
	_ types.StreamingLLMProvider = (*InstrumentedProvider)(nil)
	_ types.ToolCallingProvider  = (*InstrumentedProvider)(nil)
)
