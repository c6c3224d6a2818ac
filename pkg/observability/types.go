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

// Package observability provides tracing, metrics and model usage accounting
// for dealdraft sessions.
//
// A turn opens an orchestrator.turn span; classification, the handler, model
// calls, tool runs, bus queries and retrieval searches nest beneath it. Model
// calls additionally append a UsageRecord to a UsageSink whose lifetime
// matches the host session.
//
//	ctx, span := tracer.StartSpan(ctx, observability.SpanBusQuery,
//		observability.WithAttribute(observability.AttrBusTo, "analyst"))
//	defer tracer.EndSpan(span)
package observability

import (
	"errors"
	"strings"
	"time"
)

// SpanKind groups spans by the component that opened them.
type SpanKind string

const (
	KindOrchestrator SpanKind = "orchestrator"
	KindLLM          SpanKind = "llm"
	KindAgent        SpanKind = "agent"
	KindTool         SpanKind = "tool"
	KindBus          SpanKind = "bus"
	KindRetrieval    SpanKind = "retrieval"
	KindOther        SpanKind = "other"
)

// KindOf derives the kind from the prefix of a standard span name
// ("llm.completion" is KindLLM).
func KindOf(name string) SpanKind {
	prefix, _, _ := strings.Cut(name, ".")
	switch k := SpanKind(prefix); k {
	case KindOrchestrator, KindLLM, KindAgent, KindTool, KindBus, KindRetrieval:
		return k
	}
	return KindOther
}

// StatusCode is the outcome of a span.
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}

// Event is a point in time inside a span, such as the first streamed token.
type Event struct {
	Timestamp  time.Time
	Name       string
	Attributes map[string]interface{}
}

// Span is one timed operation. ParentID links it to the enclosing span of the
// same turn.
type Span struct {
	TraceID  string
	SpanID   string
	ParentID string

	Name       string
	Kind       SpanKind
	Attributes map[string]interface{}

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Events []Event

	Status        StatusCode
	StatusMessage string
}

// SetAttribute sets a key-value attribute on the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	if s == nil {
		return
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]interface{})
	}
	s.Attributes[key] = value
}

// AddEvent adds a timestamped event to the span.
func (s *Span) AddEvent(name string, attrs map[string]interface{}) {
	if s == nil {
		return
	}
	s.Events = append(s.Events, Event{Timestamp: time.Now(), Name: name, Attributes: attrs})
}

// SetOK marks the span successful.
func (s *Span) SetOK() {
	if s == nil {
		return
	}
	s.Status = StatusOK
	s.StatusMessage = ""
}

// RecordError marks the span failed and tags it with ErrorType(err).
func (s *Span) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.Status = StatusError
	s.StatusMessage = err.Error()
	s.SetAttribute(AttrErrorMessage, err.Error())
	s.SetAttribute(AttrErrorType, ErrorType(err))
}

// ErrorType returns the category an error reports through an
// ErrorType() string method anywhere in its chain, or "error".
func ErrorType(err error) string {
	var typed interface{ ErrorType() string }
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	return "error"
}

// SpanOption configures a span at start.
type SpanOption func(*Span)

// WithAttribute sets an attribute at start.
func WithAttribute(key string, value interface{}) SpanOption {
	return func(s *Span) {
		s.SetAttribute(key, value)
	}
}

// WithSpanKind overrides the kind derived from the span name.
func WithSpanKind(kind SpanKind) SpanOption {
	return func(s *Span) {
		s.Kind = kind
	}
}
