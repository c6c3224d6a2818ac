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

package jsonrepair

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/observability"
)

// diagnosticLimit caps how much of a failed input is logged.
const diagnosticLimit = 500

// Parser wraps Extract with failure diagnostics.
type Parser struct {
	logger *zap.Logger
	tracer observability.Tracer
}

// NewParser creates a parser. Nil arguments are replaced with no-ops.
func NewParser(logger *zap.Logger, tracer observability.Tracer) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = observability.NewNoOpTracer()
	}
	return &Parser{logger: logger, tracer: tracer}
}

// Parse extracts a value of the given shape. source names the caller in the
// diagnostic emitted on failure.
func (p *Parser) Parse(source, text string, shape Shape) (interface{}, bool) {
	v, ok := Extract(text, shape)
	if !ok {
		p.failed(source, text, shape)
	}
	return v, ok
}

// ParseObject is Parse with ShapeObject, typed.
func (p *Parser) ParseObject(source, text string) (map[string]interface{}, bool) {
	m, ok := ExtractObject(text)
	if !ok {
		p.failed(source, text, ShapeObject)
	}
	return m, ok
}

// ParseArray is Parse with ShapeArray, typed.
func (p *Parser) ParseArray(source, text string) ([]interface{}, bool) {
	a, ok := ExtractArray(text)
	if !ok {
		p.failed(source, text, ShapeArray)
	}
	return a, ok
}

func (p *Parser) failed(source, text string, shape Shape) {
	snippet := text
	if len(snippet) > diagnosticLimit {
		cut := diagnosticLimit
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	p.logger.Warn("structured output parse failed",
		zap.String("source", source),
		zap.String("shape", shape.String()),
		zap.Int("length", len(text)),
		zap.String("input", snippet))
	p.tracer.RecordMetric(observability.MetricParseFailures, 1, map[string]string{
		"source": source,
		"shape":  shape.String(),
	})
}
