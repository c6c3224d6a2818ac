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
	"github.com/teradata-labs/dealdraft/pkg/communication"
	"github.com/teradata-labs/dealdraft/pkg/session"
)

// Progress step statuses.
const (
	StepDone    = "done"
	StepSkipped = "skipped"
	StepFailed  = "failed"
)

// ProgressStep reports one unit of work done during a turn.
type ProgressStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ProgressCallback receives progress steps as they happen.
type ProgressCallback func(step ProgressStep)

// Response is everything a turn produced.
type Response struct {
	Text           string         `json:"text"`
	Intent         Intent         `json:"intent,omitempty"`
	Classification Classification `json:"classification"`
	Progress       []ProgressStep `json:"progress,omitempty"`

	// SuggestedNext is the intent the user most likely wants next.
	SuggestedNext    Intent `json:"suggested_next,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`

	SourcesUsed      []string                     `json:"sources_used,omitempty"`
	NewRetrievals    []session.RetrievalQuery     `json:"new_retrievals,omitempty"`
	NewAgentMessages []communication.AgentMessage `json:"new_agent_messages,omitempty"`

	// StructuredFailed is set when a handler's reply could not be parsed;
	// Text then holds the raw reply.
	StructuredFailed bool        `json:"structured_failed,omitempty"`
	Structured       interface{} `json:"structured,omitempty"`

	// Failed is set when the turn did not complete and state was left as it
	// was.
	Failed bool `json:"failed,omitempty"`

	Task TaskState `json:"task"`
}

func (r *Response) addSources(sources ...string) {
	for _, s := range sources {
		if s == "" {
			continue
		}
		dup := false
		for _, have := range r.SourcesUsed {
			if have == s {
				dup = true
				break
			}
		}
		if !dup {
			r.SourcesUsed = append(r.SourcesUsed, s)
		}
	}
}
