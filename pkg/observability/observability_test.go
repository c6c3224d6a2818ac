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

package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTracer_ParentPropagation(t *testing.T) {
	tracer := NewMockTracer()

	ctx, parent := tracer.StartSpan(context.Background(), SpanOrchestratorTurn)
	_, child := tracer.StartSpan(ctx, SpanLLMCompletion, WithAttribute(AttrLLMModel, "m1"))
	child.RecordError(errors.New("boom"))
	tracer.EndSpan(child)
	tracer.EndSpan(parent)

	spans := tracer.GetSpans()
	require.Len(t, spans, 2)

	got := tracer.GetSpanByName(SpanLLMCompletion)
	require.NotNil(t, got)
	assert.Equal(t, parent.TraceID, got.TraceID)
	assert.Equal(t, parent.SpanID, got.ParentID)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "boom", got.Attributes[AttrErrorMessage])
	assert.Equal(t, "m1", got.Attributes[AttrLLMModel])

	tracer.Reset()
	assert.Empty(t, tracer.GetSpans())
}

func TestMockTracer_Metrics(t *testing.T) {
	tracer := NewMockTracer()
	tracer.RecordMetric(MetricLLMCalls, 1, map[string]string{"caller": "a"})
	tracer.RecordMetric(MetricLLMCalls, 1, map[string]string{"caller": "b"})
	tracer.RecordMetric(MetricLLMCost, 0.5, nil)

	assert.Len(t, tracer.GetMetrics(MetricLLMCalls), 2)
	assert.Len(t, tracer.GetMetrics(MetricLLMCost), 1)
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	s.SetAttribute("k", "v")
	s.AddEvent("e", nil)
	s.RecordError(errors.New("x"))
	NewNoOpTracer().EndSpan(nil)
	NewMockTracer().EndSpan(nil)
}

type categorized struct{}

func (categorized) Error() string     { return "over quota" }
func (categorized) ErrorType() string { return "transient" }

func TestSpan_KindAndErrorType(t *testing.T) {
	tracer := NewMockTracer()

	_, turn := tracer.StartSpan(context.Background(), SpanOrchestratorTurn)
	_, loop := tracer.StartSpan(context.Background(), SpanToolLoop)
	_, custom := tracer.StartSpan(context.Background(), "export.write", WithSpanKind(KindTool))
	assert.Equal(t, KindOrchestrator, turn.Kind)
	assert.Equal(t, KindAgent, loop.Kind)
	assert.Equal(t, KindTool, custom.Kind)
	assert.Equal(t, KindOther, KindOf("export.write"))

	turn.RecordError(fmt.Errorf("classify: %w", categorized{}))
	assert.Equal(t, StatusError, turn.Status)
	assert.Equal(t, "transient", turn.Attributes[AttrErrorType])

	loop.RecordError(errors.New("plain"))
	assert.Equal(t, "error", loop.Attributes[AttrErrorType])

	loop.SetOK()
	assert.Equal(t, StatusOK, loop.Status)
	assert.Empty(t, loop.StatusMessage)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, &NoOpTracer{}, OrNoOp(nil))

	mock := NewMockTracer()
	assert.Same(t, mock, OrNoOp(mock))

	ctx, parent := OrNoOp(nil).StartSpan(context.Background(), "parent")
	_, child := OrNoOp(nil).StartSpan(ctx, "child")
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
}

func TestMemoryUsageSink_Totals(t *testing.T) {
	ctx := context.Background()
	sink := NewMemoryUsageSink()
	require.NoError(t, sink.Record(ctx, UsageRecord{Caller: "writer", InputTokens: 10, OutputTokens: 2, CostUSD: 0.1, Latency: time.Second, Success: true}))
	require.NoError(t, sink.Record(ctx, UsageRecord{Caller: "analyst", InputTokens: 5, Success: true}))
	require.NoError(t, sink.Record(ctx, UsageRecord{Caller: "writer", InputTokens: 1, Success: false}))

	recs, err := sink.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sink.Len())

	totals := Totals(recs)
	require.Len(t, totals, 2)
	assert.Equal(t, "analyst", totals[0].Caller)
	assert.Equal(t, "writer", totals[1].Caller)
	assert.Equal(t, 2, totals[1].Calls)
	assert.Equal(t, 1, totals[1].Failures)
	assert.Equal(t, 11, totals[1].InputTokens)
	assert.InDelta(t, 0.1, totals[1].CostUSD, 1e-9)
}
