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
	"time"

	"github.com/google/uuid"
)

// NoOpTracer keeps span parentage in the context but records nothing. It is
// the tracer used when none is configured.
type NoOpTracer struct{}

// NewNoOpTracer creates a no-op tracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span) {
	span := newSpan(ctx, name, opts)
	return ContextWithSpan(ctx, span), span
}

func (t *NoOpTracer) EndSpan(span *Span) { finishSpan(span) }

func (t *NoOpTracer) RecordMetric(string, float64, map[string]string) {}

// OrNoOp returns t, or a NoOpTracer when t is nil.
func OrNoOp(t Tracer) Tracer {
	if t == nil {
		return NewNoOpTracer()
	}
	return t
}

// newSpan builds a span that inherits the trace of the span in ctx, if any.
func newSpan(ctx context.Context, name string, opts []SpanOption) *Span {
	span := &Span{
		TraceID:    uuid.NewString(),
		SpanID:     uuid.NewString(),
		Name:       name,
		Kind:       KindOf(name),
		StartTime:  time.Now(),
		Attributes: make(map[string]interface{}),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	}
	for _, opt := range opts {
		opt(span)
	}
	return span
}

// finishSpan stamps end time and duration. Returns false for a nil span.
func finishSpan(span *Span) bool {
	if span == nil {
		return false
	}
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	return true
}

var _ Tracer = (*NoOpTracer)(nil)
