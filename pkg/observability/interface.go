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

import "context"

// Tracer opens and closes spans and records metrics. The Gateway, the tool
// executor, the bus, the search tool and the orchestrator each take one;
// a nil Tracer anywhere means OrNoOp(nil).
//
// Implementations must be safe for concurrent use.
type Tracer interface {
	// StartSpan opens a span under the span carried by ctx, if any, and
	// returns a context carrying the new span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span)

	// EndSpan stamps the end time and duration. A nil span is ignored.
	EndSpan(span *Span)

	// RecordMetric records one observation of a standard metric.
	RecordMetric(name string, value float64, labels map[string]string)
}

type spanKey struct{}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// ContextWithSpan returns ctx carrying span.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanKey{}, span)
}
