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

package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/dealdraft/pkg/config"
	"github.com/teradata-labs/dealdraft/pkg/jsonrepair"
	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
)

func newTestAgent(t *testing.T, provider *llm.MockProvider, temperature float64) *Agent {
	t.Helper()
	return New(Config{
		Name:        Analyst,
		System:      RolePrompt(Analyst),
		Temperature: temperature,
	}, newTestLoop(t, provider), zaptest.NewLogger(t))
}

func TestAgent_RunStructuredFirstAttempt(t *testing.T) {
	provider := llm.NewMockProvider("Here you go:\n\x60\x60\x60json\n{\"revenue\": \"12M\"}\n\x60\x60\x60")
	a := newTestAgent(t, provider, 0.2)

	res, err := a.RunStructured(context.Background(), "extract", jsonrepair.ShapeObject, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, map[string]interface{}{"revenue": "12M"}, res.Value)
	assert.Equal(t, 1, provider.CallCount())
	require.NotNil(t, provider.LastRequest().Temperature)
	assert.InDelta(t, 0.2, *provider.LastRequest().Temperature, 1e-9)
}

func TestAgent_RunStructuredRetriesHotter(t *testing.T) {
	provider := llm.NewMockProvider("I cannot format that.", "[\"a\", \"b\"]")
	a := newTestAgent(t, provider, 0.3)

	res, err := a.RunStructured(context.Background(), "list", jsonrepair.ShapeArray, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []interface{}{"a", "b"}, res.Value)

	reqs := provider.Requests()
	require.Len(t, reqs, 2)
	assert.InDelta(t, 0.3, *reqs[0].Temperature, 1e-9)
	assert.InDelta(t, 0.3+RetryTemperatureStep, *reqs[1].Temperature, 1e-9)
}

func TestAgent_RunStructuredTemperatureCapped(t *testing.T) {
	provider := llm.NewMockProvider("nope", "still nope")
	a := newTestAgent(t, provider, 0.95)

	_, _ = a.RunStructured(context.Background(), "list", jsonrepair.ShapeArray, nil)

	reqs := provider.Requests()
	require.Len(t, reqs, 2)
	assert.InDelta(t, 1.0, *reqs[1].Temperature, 1e-9)
}

func TestAgent_RunStructuredFailsAfterRetry(t *testing.T) {
	provider := llm.NewMockProvider("no json here", "none here either")
	tracer := observability.NewMockTracer()
	a := New(Config{Name: Analyst, Temperature: 0.2}, newTestLoop(t, provider, WithTracer(tracer)), zaptest.NewLogger(t))

	res, err := a.RunStructured(context.Background(), "extract", jsonrepair.ShapeObject, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailure)

	require.NotNil(t, res)
	assert.Nil(t, res.Value)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "none here either", res.Raw())
	assert.Equal(t, 2, provider.CallCount(), "exactly one retry")
	assert.Len(t, tracer.GetMetrics(observability.MetricParseFailures), 2)
}

func TestAgent_RunStructuredValidation(t *testing.T) {
	provider := llm.NewMockProvider("{\"body\": \"x\"}", "{\"title\": \"Overview\"}")
	a := newTestAgent(t, provider, 0.5)

	validate := func(v interface{}) error {
		if _, ok := v.(map[string]interface{})["title"]; !ok {
			return errors.New("missing title")
		}
		return nil
	}

	res, err := a.RunStructured(context.Background(), "outline", jsonrepair.ShapeObject, validate)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "Overview", res.Value.(map[string]interface{})["title"])
}

func TestAgent_RunStructuredGatewayError(t *testing.T) {
	provider := &llm.MockProvider{Responses: []llm.MockResponse{{Err: &llm.FatalError{Provider: "mock", Err: errors.New("denied")}}}}
	a := newTestAgent(t, provider, 0.2)

	_, err := a.RunStructured(context.Background(), "extract", jsonrepair.ShapeObject, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrParseFailure)
	assert.Equal(t, 1, provider.CallCount())
}

func TestAgent_Respond(t *testing.T) {
	provider := llm.NewMockProvider("Gross margin is 61%.")
	a := newTestAgent(t, provider, 0.2)

	answer, err := a.Respond(context.Background(), "What is gross margin?", "Section: Financial overview")
	require.NoError(t, err)
	assert.Equal(t, "Gross margin is 61%.", answer)

	prompt := provider.LastRequest().Messages[0].Content
	assert.Contains(t, prompt, "Section: Financial overview")
	assert.Contains(t, prompt, "What is gross margin?")
	assert.Equal(t, Analyst, provider.LastRequest().Caller)
}

func loadDefs(t *testing.T) map[string]*config.AgentDefinition {
	t.Helper()
	defs, err := config.LoadAgentDefinitions("")
	require.NoError(t, err)
	return defs
}

func toolRegistry(t *testing.T, tools ...shuttle.Tool) *shuttle.Registry {
	t.Helper()
	registry := shuttle.NewRegistry()
	for _, tool := range tools {
		require.NoError(t, registry.Register(tool))
	}
	return registry
}

func TestBuildRoles(t *testing.T) {
	registry := toolRegistry(t, searchTool("r"), &shuttle.MockTool{MockName: "ask_agent"})
	loop := newTestLoop(t, llm.NewMockProvider("ok"))

	agents, err := BuildRoles(loadDefs(t), loop, registry, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, agents, len(Roles))

	writer := agents[Writer]
	require.NotNil(t, writer)
	names := make([]string, 0, len(writer.Tools()))
	for _, tool := range writer.Tools() {
		names = append(names, tool.Name())
	}
	assert.ElementsMatch(t, []string{"search_documents", "ask_agent"}, names)
	assert.Len(t, agents[Compliance].Tools(), 1)
	assert.NotEmpty(t, agents[Analyst].Description())
}

func TestFromDefinition_UnregisteredTool(t *testing.T) {
	registry := toolRegistry(t, searchTool("r"))
	loop := newTestLoop(t, llm.NewMockProvider("ok"))

	_, err := FromDefinition(loadDefs(t)[Writer], loop, registry, nil, zaptest.NewLogger(t))
	require.Error(t, err)

	var cfgErr *shuttle.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, Writer, cfgErr.Agent)
	assert.Equal(t, "ask_agent", cfgErr.Tool)
}

func TestFromDefinition_TemperatureOverride(t *testing.T) {
	provider := llm.NewMockProvider("ok")
	registry := toolRegistry(t, searchTool("r"))
	def := loadDefs(t)[Analyst]
	hot := 0.9
	def.Spec.Temperature = &hot

	a, err := FromDefinition(def, newTestLoop(t, provider), registry, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, *provider.LastRequest().Temperature, 1e-9)
	assert.Contains(t, provider.LastRequest().System, "senior deal analyst")
}

func TestBuildRoles_MissingDefinition(t *testing.T) {
	defs := loadDefs(t)
	delete(defs, Compliance)

	_, err := BuildRoles(defs, newTestLoop(t, llm.NewMockProvider("ok")), toolRegistry(t, searchTool("r"), &shuttle.MockTool{MockName: "ask_agent"}), nil, nil)
	var cfgErr *shuttle.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, Compliance, cfgErr.Agent)
}
