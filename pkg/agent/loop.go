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

// Package agent implements the tool-calling loop and the role agents built
// on it (analyst, compliance, writer).
//
// The loop drives a model through bounded rounds of tool use. Backends with
// native tool calling receive tool schemas directly; others are taught a
// text-tag protocol in the system prompt. Callers get the same RunResult
// either way.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/session"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// DefaultMaxRounds bounds a run when RunRequest.MaxRounds is zero.
const DefaultMaxRounds = 5

// State is where a loop run is, or ended.
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTool
	StateDone
	StateMaxRoundsExceeded
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTool:
		return "executing_tool"
	case StateDone:
		return "done"
	case StateMaxRoundsExceeded:
		return "max_rounds_exceeded"
	default:
		return "unknown"
	}
}

// Mode is the tool protocol a run used.
type Mode string

const (
	ModeNative  Mode = "native"
	ModeTextTag Mode = "text_tag"
)

// ModelCaller is the gateway surface the loop needs. *llm.Gateway
// implements it.
type ModelCaller interface {
	Call(ctx context.Context, req *llm.CallRequest) (*llm.CallResponse, error)
	SupportsTools() bool
}

// RunRequest describes one loop run.
type RunRequest struct {
	Caller      string
	System      string
	Prompt      string
	Model       string
	Temperature *float64
	MaxTokens   int

	// Tools offered to the model. Executor resolves calls by exact name; when
	// nil an executor over Tools is built.
	Tools    []shuttle.Tool
	Executor shuttle.ToolExecutor

	MaxRounds int
}

// ToolCallRecord is one tool invocation within a run.
type ToolCallRecord struct {
	Round  int
	Tool   string
	Args   map[string]interface{}
	Result string
	Error  string
	// Duration of the execution
	Duration time.Duration
}

// RunResult is the outcome of a loop run.
type RunResult struct {
	FinalText  string
	RoundsUsed int
	State      State
	Mode       Mode
	Calls      []ToolCallRecord

	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Loop runs the bounded tool-calling protocol.
type Loop struct {
	gateway ModelCaller
	tracer  observability.Tracer
	logger  *zap.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) LoopOption {
	return func(l *Loop) { l.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop creates a loop over gateway.
func NewLoop(gateway ModelCaller, opts ...LoopOption) *Loop {
	l := &Loop{
		gateway: gateway,
		tracer:  observability.NewNoOpTracer(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tracer == nil {
		l.tracer = observability.NewNoOpTracer()
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

// Run drives the model until it answers without tool calls or MaxRounds is
// reached. Tool failures of any kind are fed back to the model as text; only
// gateway errors and cancellation end a run with an error.
//
// Reaching MaxRounds is not an error: the result carries the best text seen
// and StateMaxRoundsExceeded. Tool calls requested in the final round are not
// executed.
func (l *Loop) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	maxRounds := req.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	executor := req.Executor
	if executor == nil {
		executor = executorFor(req.Tools)
	}

	mode := ModeNative
	if len(req.Tools) > 0 && !l.gateway.SupportsTools() {
		mode = ModeTextTag
	}

	ctx, span := l.tracer.StartSpan(ctx, observability.SpanToolLoop,
		observability.WithAttribute(observability.AttrLLMCaller, req.Caller),
		observability.WithAttribute("loop.mode", string(mode)),
		observability.WithAttribute("loop.max_rounds", maxRounds))
	defer l.tracer.EndSpan(span)
	ctx = session.WithAgentID(ctx, req.Caller)

	result := &RunResult{Mode: mode, State: StateAwaitingModel}
	system := req.System
	if mode == ModeTextTag {
		system = withToolCatalog(system, req.Tools)
	}

	messages := []types.Message{{Role: types.RoleUser, Content: req.Prompt, Timestamp: time.Now()}}
	best := ""

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}
		result.State = StateAwaitingModel
		result.RoundsUsed = round

		call := &llm.CallRequest{
			Caller:      req.Caller,
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			System:      system,
			Messages:    messages,
		}
		if mode == ModeNative {
			call.Tools = req.Tools
		}

		resp, err := l.gateway.Call(ctx, call)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%s round %d: %w", req.Caller, round, err)
		}
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens
		result.CostUSD += resp.CostUSD

		visible, calls := l.interpret(mode, resp)
		if visible != "" {
			best = visible
		}

		if len(calls) == 0 {
			result.State = StateDone
			result.FinalText = visible
			if result.FinalText == "" {
				result.FinalText = best
			}
			break
		}

		if round == maxRounds {
			l.logger.Warn("tool loop hit max rounds",
				zap.String("caller", req.Caller),
				zap.Int("max_rounds", maxRounds),
				zap.Int("pending_calls", len(calls)))
			result.State = StateMaxRoundsExceeded
			result.FinalText = best
			break
		}

		result.State = StateExecutingTool
		messages = append(messages, assistantTurn(mode, resp, calls))

		var feedback []types.Message
		for _, tc := range calls {
			rec := l.execute(ctx, executor, req.Tools, round, tc)
			result.Calls = append(result.Calls, rec)
			feedback = append(feedback, types.Message{
				Role:      types.RoleTool,
				Content:   rec.Result,
				ToolUseID: tc.ID,
				ToolName:  tc.Name,
				Timestamp: time.Now(),
			})
		}
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}

		if mode == ModeTextTag {
			messages = append(messages, types.Message{
				Role:      types.RoleUser,
				Content:   formatToolResults(feedback),
				Timestamp: time.Now(),
			})
		} else {
			messages = append(messages, feedback...)
		}
	}

	span.SetAttribute("loop.rounds", result.RoundsUsed)
	span.SetAttribute("loop.state", result.State.String())
	span.SetAttribute("loop.tool_calls", len(result.Calls))
	l.logger.Debug("tool loop finished",
		zap.String("caller", req.Caller),
		zap.String("mode", string(mode)),
		zap.String("state", result.State.String()),
		zap.Int("rounds", result.RoundsUsed),
		zap.Int("tool_calls", len(result.Calls)))

	return result, nil
}

// pendingCall is a tool call with any parse problem attached.
type pendingCall struct {
	types.ToolCall
	positional    string
	hasPositional bool
	parseErr      error
}

// interpret returns the user-visible text of a reply and the tool calls it
// requests.
func (l *Loop) interpret(mode Mode, resp *llm.CallResponse) (string, []pendingCall) {
	if mode == ModeNative {
		calls := make([]pendingCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			calls = append(calls, pendingCall{ToolCall: tc})
		}
		return strings.TrimSpace(resp.Text), calls
	}
	return parseTextTagCalls(resp.Text)
}

func assistantTurn(mode Mode, resp *llm.CallResponse, calls []pendingCall) types.Message {
	msg := types.Message{Role: types.RoleAssistant, Content: resp.Text, Timestamp: time.Now()}
	if mode == ModeNative {
		for _, c := range calls {
			msg.ToolCalls = append(msg.ToolCalls, c.ToolCall)
		}
	}
	return msg
}

func (l *Loop) execute(ctx context.Context, executor shuttle.ToolExecutor, tools []shuttle.Tool, round int, call pendingCall) (rec ToolCallRecord) {
	rec = ToolCallRecord{Round: round, Tool: call.Name, Args: call.Input}
	start := time.Now()
	defer func() { rec.Duration = time.Since(start) }()

	if call.parseErr != nil {
		rec.Error = call.parseErr.Error()
		rec.Result = "invalid tool call: " + call.parseErr.Error()
		return rec
	}

	args := call.Input
	if args == nil {
		args = map[string]interface{}{}
	}
	if call.hasPositional {
		if param := primaryParam(tools, call.Name); param != "" {
			args[param] = call.positional
		}
	}
	rec.Args = args

	res, err := executor.Execute(ctx, call.Name, args)
	if err != nil {
		rec.Error = err.Error()
		rec.Result = "tool error: " + err.Error()
		return rec
	}
	rec.Result = res.Text()
	if !res.Success && res.Error != nil {
		rec.Error = res.Error.Message
		l.logger.Debug("tool call failed",
			zap.String("tool", call.Name),
			zap.String("code", res.Error.Code),
			zap.String("error", res.Error.Message))
	}
	return rec
}

// executorFor builds an executor over an ad hoc registry.
func executorFor(tools []shuttle.Tool) shuttle.ToolExecutor {
	registry := shuttle.NewRegistry()
	for _, t := range tools {
		// duplicates keep the first registration
		_ = registry.Register(t)
	}
	return shuttle.NewExecutor(registry)
}

// primaryParam is the parameter a positional argument binds to: the first
// required property, else the only property, else the first in name order.
func primaryParam(tools []shuttle.Tool, name string) string {
	for _, t := range tools {
		if t.Name() != name {
			continue
		}
		schema := t.InputSchema()
		if schema == nil || len(schema.Properties) == 0 {
			return ""
		}
		if len(schema.Required) > 0 {
			return schema.Required[0]
		}
		keys := make([]string, 0, len(schema.Properties))
		for k := range schema.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys[0]
	}
	return ""
}
