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

package orchestration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schemas for handler outputs. Every object is closed so that a reply using
// the wrong field names fails validation instead of being silently dropped.
const (
	insightsSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["summary"],
	"properties": {
		"deal_type":   {"type": ["string", "null"]},
		"parties":     {"type": ["array", "null"], "items": {"type": "string"}},
		"loan_amount": {"type": ["number", "null"], "minimum": 0},
		"currency":    {"type": ["string", "null"]},
		"term":        {"type": ["string", "null"]},
		"collateral":  {"type": ["string", "null"]},
		"key_facts":   {"type": ["array", "null"], "items": {"type": "string"}},
		"risks":       {"type": ["array", "null"], "items": {"type": "string"}},
		"summary":     {"type": "string"}
	}
}`

	enhanceSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["benchmarks"],
	"properties": {
		"benchmarks": {"type": "array", "items": {"type": "string"}},
		"risks":      {"type": "array", "items": {"type": "string"}},
		"key_facts":  {"type": "array", "items": {"type": "string"}},
		"summary":    {"type": "string"}
	}
}`

	requirementsSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"additionalProperties": false,
		"required": ["id", "title"],
		"properties": {
			"id":          {"type": "string", "minLength": 1},
			"title":       {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"category":    {"type": "string"},
			"source":      {"type": "string"},
			"mandatory":   {"type": "boolean"}
		}
	}
}`

	complianceSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["status", "findings"],
	"properties": {
		"status":   {"type": "string", "enum": ["pass", "fail", "partial"]},
		"summary":  {"type": "string"},
		"findings": {
			"type": "array",
			"items": {
				"type": "object",
				"additionalProperties": false,
				"required": ["requirement_id", "status"],
				"properties": {
					"requirement_id": {"type": "string"},
					"status":         {"type": "string", "enum": ["pass", "fail", "partial", "n/a"]},
					"detail":         {"type": "string"}
				}
			}
		}
	}
}`

	outlineSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"additionalProperties": false,
		"required": ["id", "title"],
		"properties": {
			"id":      {"type": "string", "pattern": "^[A-Za-z0-9][A-Za-z0-9_-]*$"},
			"title":   {"type": "string", "minLength": 1},
			"purpose": {"type": "string"}
		}
	}
}`

	draftSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["content"],
	"properties": {
		"id":      {"type": "string"},
		"title":   {"type": "string"},
		"content": {"type": "string", "minLength": 1},
		"sources": {"type": "array", "items": {"type": "string"}}
	}
}`
)

// outputSchema is a compiled schema for one handler output.
type outputSchema struct {
	name   string
	schema *gojsonschema.Schema
}

// schemaSet holds every handler output schema, compiled once.
type schemaSet struct {
	insights     *outputSchema
	enhance      *outputSchema
	requirements *outputSchema
	compliance   *outputSchema
	outline      *outputSchema
	draft        *outputSchema
}

func newSchemaSet() *schemaSet {
	return &schemaSet{
		insights:     mustSchema("insights", insightsSchemaJSON),
		enhance:      mustSchema("enhance", enhanceSchemaJSON),
		requirements: mustSchema("requirements", requirementsSchemaJSON),
		compliance:   mustSchema("compliance", complianceSchemaJSON),
		outline:      mustSchema("outline", outlineSchemaJSON),
		draft:        mustSchema("draft", draftSchemaJSON),
	}
}

func mustSchema(name, src string) *outputSchema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("orchestration: compile %s schema: %v", name, err))
	}
	return &outputSchema{name: name, schema: schema}
}

// Validate checks v against the schema.
func (s *outputSchema) Validate(v interface{}) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return fmt.Errorf("%s: %s", s.name, strings.Join(msgs, "; "))
	}
	return nil
}

// into returns a validator for agent.RunStructured that checks the parsed
// value against s and decodes it into out, rejecting unknown fields. out is
// only written when both succeed.
func into[T any](s *outputSchema, out *T) func(interface{}) error {
	return func(v interface{}) error {
		if err := s.Validate(v); err != nil {
			return err
		}
		var decoded T
		if err := decodeStrict(v, &decoded); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		*out = decoded
		return nil
	}
}

// decodeStrict re-decodes a generic JSON value into a typed one.
func decodeStrict(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
