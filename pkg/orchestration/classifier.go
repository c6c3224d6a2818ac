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
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/agent"
	"github.com/teradata-labs/dealdraft/pkg/jsonrepair"
	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// CallerClassifier labels classifier calls in usage records.
const CallerClassifier = "classifier"

var classifierPrompt = heredoc.Doc(`
	You route messages in a deal drafting assistant. Read the conversation,
	the current context and the new message, then pick exactly one intent.

	Reply with a single JSON object and nothing else:
	{"intent": "<intent>", "target": "<section id or title, or empty>", "agent": "<agent name, or empty>", "confidence": <0 to 1>}

	Intents:
`)

// Classifier maps a user turn to an Intent with a dedicated model call.
type Classifier struct {
	gateway ModelGateway
	agents  func() []string
	tracer  observability.Tracer
	logger  *zap.Logger
}

// NewClassifier creates a classifier. agents lists the names valid for
// query-agent and may be nil.
func NewClassifier(gateway ModelGateway, agents func() []string, tracer observability.Tracer, logger *zap.Logger) *Classifier {
	if tracer == nil {
		tracer = observability.NewNoOpTracer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{gateway: gateway, agents: agents, tracer: tracer, logger: logger}
}

// Classify reads the whole history, a digest of st and message. An
// unusable reply is retried once at a higher temperature; a second failure
// returns an error wrapping agent.ErrParseFailure.
func (c *Classifier) Classify(ctx context.Context, st *session.State, message string) (Classification, error) {
	ctx, span := c.tracer.StartSpan(ctx, observability.SpanOrchestratorClassify)
	defer c.tracer.EndSpan(span)

	req := &llm.CallRequest{
		Caller: CallerClassifier,
		System: c.system(),
		Prompt: classifierInput(st, message),
	}

	temperature := 0.0
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		req.Temperature = types.Float64(temperature)
		resp, err := c.gateway.Call(ctx, req)
		if err != nil {
			span.RecordError(err)
			return Classification{}, err
		}

		class, err := parseClassification(resp.Text)
		if err == nil {
			span.SetAttribute(observability.AttrIntent, string(class.Intent))
			return class, nil
		}
		lastErr = err
		c.tracer.RecordMetric(observability.MetricParseFailures, 1, map[string]string{"source": CallerClassifier})
		c.logger.Warn("classifier reply rejected",
			zap.Int("attempt", attempt),
			zap.String("reply", session.OneLine(resp.Text, 200)),
			zap.Error(err))
		temperature = math.Min(temperature+agent.RetryTemperatureStep, 1.0)
	}

	err := fmt.Errorf("classify: %w: %w", agent.ErrParseFailure, lastErr)
	span.RecordError(err)
	return Classification{}, err
}

func (c *Classifier) system() string {
	var b strings.Builder
	b.WriteString(classifierPrompt)
	for _, in := range Intents {
		fmt.Fprintf(&b, "- %s: %s\n", in, in.Description())
	}
	if c.agents != nil {
		if names := c.agents(); len(names) > 0 {
			fmt.Fprintf(&b, "\nAgents: %s\n", strings.Join(names, ", "))
		}
	}
	return b.String()
}

func classifierInput(st *session.State, message string) string {
	var b strings.Builder
	if history := st.RecentHistory(len(st.History)); history != "" {
		b.WriteString("Conversation:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	b.WriteString("Context:\n")
	b.WriteString(st.Digest())
	b.WriteString("\nNew message:\n")
	b.WriteString(message)
	return b.String()
}

// parseClassification accepts the JSON reply or a bare intent label.
func parseClassification(text string) (Classification, error) {
	obj, ok := jsonrepair.ExtractObject(text)
	if !ok {
		label := strings.TrimSpace(text)
		if i := strings.IndexByte(label, '\n'); i >= 0 {
			label = label[:i]
		}
		intent, err := ParseIntent(label)
		if err != nil {
			return Classification{}, err
		}
		return Classification{Intent: intent, Confidence: 1}, nil
	}

	label, _ := obj["intent"].(string)
	intent, err := ParseIntent(label)
	if err != nil {
		return Classification{}, err
	}
	class := Classification{Intent: intent, Confidence: 1}
	class.Target, _ = obj["target"].(string)
	class.Target = strings.TrimSpace(class.Target)
	class.Agent, _ = obj["agent"].(string)
	class.Agent = strings.ToLower(strings.TrimSpace(class.Agent))
	if conf, ok := obj["confidence"].(float64); ok {
		class.Confidence = math.Max(0, math.Min(conf, 1))
	}
	return class, nil
}
