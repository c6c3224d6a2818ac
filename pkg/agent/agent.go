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
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/jsonrepair"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// ErrParseFailure is returned when a structured reply could not be parsed or
// validated, even after the retry.
var ErrParseFailure = errors.New("structured output parse failure")

// RetryTemperatureStep is added to the temperature for the single
// re-invocation after a parse failure.
const RetryTemperatureStep = 0.2

// maxTemperature is the highest temperature every backend accepts.
const maxTemperature = 1.0

// Config describes an agent.
type Config struct {
	Name        string
	Description string
	System      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRounds   int

	Tools    []shuttle.Tool
	Executor shuttle.ToolExecutor
}

// Agent is a role-specific model persona running on the shared loop.
type Agent struct {
	cfg    Config
	loop   *Loop
	parser *jsonrepair.Parser
	logger *zap.Logger
}

// New creates an agent. A nil logger is replaced with a no-op.
func New(cfg Config, loop *Loop, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		cfg:    cfg,
		loop:   loop,
		parser: jsonrepair.NewParser(logger, loop.tracer),
		logger: logger.With(zap.String("agent", cfg.Name)),
	}
}

// Name returns the agent's bus identifier.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// Description returns the one-line role description.
func (a *Agent) Description() string {
	return a.cfg.Description
}

// Tools returns the agent's toolset.
func (a *Agent) Tools() []shuttle.Tool {
	return a.cfg.Tools
}

// Run executes one loop run at the agent's configured temperature.
func (a *Agent) Run(ctx context.Context, prompt string) (*RunResult, error) {
	return a.run(ctx, prompt, a.cfg.Temperature)
}

func (a *Agent) run(ctx context.Context, prompt string, temperature float64) (*RunResult, error) {
	return a.loop.Run(ctx, RunRequest{
		Caller:      a.cfg.Name,
		System:      a.cfg.System,
		Prompt:      prompt,
		Model:       a.cfg.Model,
		Temperature: types.Float64(temperature),
		MaxTokens:   a.cfg.MaxTokens,
		Tools:       a.cfg.Tools,
		Executor:    a.cfg.Executor,
		MaxRounds:   a.cfg.MaxRounds,
	})
}

// StructuredResult is a parsed structured reply.
type StructuredResult struct {
	// Value is a map[string]interface{} or []interface{}; nil on failure.
	Value interface{}
	// Run is the last loop run; its FinalText is the raw reply.
	Run *RunResult
	// Attempts is 1, or 2 when the retry ran.
	Attempts int
	// Calls collects tool calls across attempts.
	Calls []ToolCallRecord
}

// Raw returns the raw text of the last attempt.
func (r *StructuredResult) Raw() string {
	if r == nil || r.Run == nil {
		return ""
	}
	return r.Run.FinalText
}

// RunStructured runs the agent and parses its reply into shape. validate,
// when set, checks the parsed value. A parse or validation failure triggers
// exactly one re-invocation at a higher temperature; a second failure returns
// the result (raw text available) together with an error wrapping
// ErrParseFailure.
func (a *Agent) RunStructured(ctx context.Context, prompt string, shape jsonrepair.Shape, validate func(interface{}) error) (*StructuredResult, error) {
	out := &StructuredResult{}
	temperature := a.cfg.Temperature
	var lastErr error

	for attempt := 1; attempt <= 2; attempt++ {
		out.Attempts = attempt

		run, err := a.run(ctx, prompt, temperature)
		if err != nil {
			return out, err
		}
		out.Run = run
		out.Calls = append(out.Calls, run.Calls...)

		value, ok := a.parser.Parse(a.cfg.Name, run.FinalText, shape)
		if !ok {
			lastErr = fmt.Errorf("%w: no %s found in reply", ErrParseFailure, shape)
		} else if validate != nil {
			if verr := validate(value); verr != nil {
				lastErr = fmt.Errorf("%w: %v", ErrParseFailure, verr)
				ok = false
			}
		}

		if ok {
			out.Value = value
			return out, nil
		}

		a.logger.Warn("structured reply rejected",
			zap.Int("attempt", attempt),
			zap.Float64("temperature", temperature),
			zap.Error(lastErr))
		temperature = math.Min(temperature+RetryTemperatureStep, maxTemperature)
	}

	return out, lastErr
}

// Respond answers a question from another agent. It satisfies the message
// bus responder contract.
func (a *Agent) Respond(ctx context.Context, question, shared string) (string, error) {
	var b strings.Builder
	if shared = strings.TrimSpace(shared); shared != "" {
		b.WriteString("Shared context:\n")
		b.WriteString(shared)
		b.WriteString("\n\n")
	}
	b.WriteString("Question from a colleague:\n")
	b.WriteString(question)
	b.WriteString("\n\nAnswer concisely and cite figures where you have them.")

	run, err := a.Run(ctx, b.String())
	if err != nil {
		return "", err
	}
	return run.FinalText, nil
}
