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
	"fmt"
	"time"
)

// Executor resolves tools by exact name and runs them. Tool problems are
// reported as unsuccessful Results, never as errors, so a loop driving the
// executor can always feed something back to the model. The only error
// Execute returns is the context's.
type Executor struct {
	registry *Registry

	// skipValidation disables schema checks of incoming params.
	skipValidation bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithoutValidation disables parameter validation against tool schemas.
func WithoutValidation() ExecutorOption {
	return func(e *Executor) { e.skipValidation = true }
}

// NewExecutor creates a new tool executor.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor dispatches against.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute executes a tool by name with the given parameters.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tool, ok := e.registry.Get(toolName)
	if !ok {
		return &Result{
			Success: false,
			Error: &Error{
				Code:    ErrCodeUnknownTool,
				Message: "unknown tool: " + toolName,
			},
		}, nil
	}

	if !e.skipValidation {
		if err := ValidateParams(tool.InputSchema(), params); err != nil {
			return &Result{
				Success: false,
				Error: &Error{
					Code:      ErrCodeInvalidParams,
					Message:   fmt.Sprintf("invalid arguments for %s: %v", toolName, err),
					Retryable: true,
				},
			}, nil
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return &Result{
			Success:         false,
			Error:           &Error{Code: ErrCodeExecutionFailed, Message: err.Error()},
			ExecutionTimeMs: duration.Milliseconds(),
		}, nil
	}

	if result == nil {
		result = &Result{Success: true}
	}
	// executor timing is authoritative
	result.ExecutionTimeMs = duration.Milliseconds()
	return result, nil
}
