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

// Standard span names. Use these constants instead of hardcoding strings.
const (
	SpanOrchestratorTurn     = "orchestrator.turn"
	SpanOrchestratorClassify = "orchestrator.classify"
	SpanOrchestratorHandler  = "orchestrator.handler"

	SpanLLMCompletion = "llm.completion"
	SpanLLMStream     = "llm.stream"

	SpanToolLoop    = "agent.tool_loop"
	SpanToolExecute = "tool.execute"

	SpanBusQuery = "bus.query"

	SpanRetrievalSearch = "retrieval.search"
)

// Standard metric names.
const (
	MetricLLMCalls        = "llm.calls.total"
	MetricLLMRetries      = "llm.retries.total"
	MetricLLMLatency      = "llm.latency"
	MetricLLMTokensInput  = "llm.tokens.input"  // #nosec G101 -- metric name
	MetricLLMTokensOutput = "llm.tokens.output" // #nosec G101 -- metric name
	MetricLLMCost         = "llm.cost"
	MetricLLMErrors       = "llm.errors.total"

	MetricToolExecutions = "tool.executions.total"
	MetricToolErrors     = "tool.errors.total"

	MetricBusQueries = "bus.queries.total"

	MetricParseFailures = "jsonrepair.failures.total"
	MetricIntents       = "orchestrator.intents.total"
)

// Standard attribute keys.
const (
	AttrLLMProvider = "llm.provider"
	AttrLLMModel    = "llm.model"
	AttrLLMCaller   = "llm.caller"

	AttrToolName = "tool.name"

	AttrBusFrom = "bus.from"
	AttrBusTo   = "bus.to"

	AttrIntent = "orchestrator.intent"

	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)
