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

package shuttle

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/observability"
)

// ToolExecutor is what the tool-calling loop dispatches through.
type ToolExecutor interface {
	Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error)
}

// InstrumentedExecutor wraps an executor with a tool.execute span, metrics
// and a debug log line per call.
type InstrumentedExecutor struct {
	executor ToolExecutor
	tracer   observability.Tracer
	logger   *zap.Logger
}

// NewInstrumentedExecutor creates a new instrumented tool executor.
func NewInstrumentedExecutor(executor ToolExecutor, tracer observability.Tracer, logger *zap.Logger) *InstrumentedExecutor {
	tracer = observability.OrNoOp(tracer)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedExecutor{
		executor: executor,
		tracer:   tracer,
		logger:   logger,
	}
}

// Execute executes a tool by name with observability instrumentation.
func (e *InstrumentedExecutor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanToolExecute,
		observability.WithAttribute(observability.AttrToolName, toolName))
	defer e.tracer.EndSpan(span)

	// keep traces small
	if paramsJSON, err := json.Marshal(params); err == nil && len(paramsJSON) < 1000 {
		span.SetAttribute("tool.args", string(paramsJSON))
	} else {
		span.SetAttribute("tool.args.count", len(params))
	}

	start := time.Now()
	result, err := e.executor.Execute(ctx, toolName, params)
	duration := time.Since(start)

	labels := map[string]string{observability.AttrToolName: toolName}
	e.tracer.RecordMetric(observability.MetricToolExecutions, 1, labels)

	if err != nil {
		span.RecordError(err)
		e.tracer.RecordMetric(observability.MetricToolErrors, 1, labels)
		return nil, err
	}

	if result.Success {
		span.SetOK()
	} else {
		code := ""
		msg := ""
		if result.Error != nil {
			code = result.Error.Code
			msg = result.Error.Message
		}
		span.Status = observability.StatusError
		span.StatusMessage = msg
		span.SetAttribute(observability.AttrErrorType, code)
		e.tracer.RecordMetric(observability.MetricToolErrors, 1, map[string]string{
			observability.AttrToolName: toolName,
			"error_code":               code,
		})
		e.logger.Warn("tool call failed",
			zap.String("tool", toolName),
			zap.String("code", code),
			zap.String("message", msg))
	}

	e.logger.Debug("tool executed",
		zap.String("tool", toolName),
		zap.Bool("success", result.Success),
		zap.Duration("duration", duration))
	return result, nil
}

var (
	_ ToolExecutor = (*Executor)(nil)
	_ ToolExecutor = (*InstrumentedExecutor)(nil)
)
