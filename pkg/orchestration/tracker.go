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

import "github.com/teradata-labs/dealdraft/pkg/session"

// Phase is a stage of the drafting workflow.
type Phase string

const (
	PhaseIntake       Phase = "intake"
	PhaseAnalysis     Phase = "analysis"
	PhaseRequirements Phase = "requirements"
	PhaseCompliance   Phase = "compliance"
	PhaseOutline      Phase = "outline"
	PhaseDrafting     Phase = "drafting"
	PhaseComplete     Phase = "complete"
)

// Phases lists the phases in order.
var Phases = []Phase{
	PhaseIntake,
	PhaseAnalysis,
	PhaseRequirements,
	PhaseCompliance,
	PhaseOutline,
	PhaseDrafting,
	PhaseComplete,
}

// Step is one workflow milestone.
type Step struct {
	Name      string `json:"name"`
	Phase     Phase  `json:"phase"`
	Intent    Intent `json:"intent,omitempty"`
	Completed bool   `json:"completed"`
}

// TaskState is the workflow position derived from a session state.
type TaskState struct {
	Phase Phase  `json:"phase"`
	Steps []Step `json:"steps"`
}

// Track derives the workflow position of st. The phase is that of the first
// incomplete step, or PhaseComplete.
func Track(st *session.State) TaskState {
	pending := len(st.PendingDocuments())
	steps := []Step{
		{Name: "upload documents", Phase: PhaseIntake, Completed: len(st.Documents) > 0},
		{Name: "analyze documents", Phase: PhaseAnalysis, Intent: IntentAnalyze, Completed: len(st.Documents) > 0 && pending == 0},
		{Name: "discover requirements", Phase: PhaseRequirements, Intent: IntentDiscoverRequirements, Completed: len(st.Requirements) > 0},
		{Name: "check compliance", Phase: PhaseCompliance, Intent: IntentCheckCompliance, Completed: st.Compliance != nil},
		{Name: "generate outline", Phase: PhaseOutline, Intent: IntentGenerateOutline, Completed: len(st.Outline) > 0},
		{Name: "draft sections", Phase: PhaseDrafting, Intent: IntentDraftSection, Completed: allDrafted(st)},
	}

	ts := TaskState{Phase: PhaseComplete, Steps: steps}
	if next, ok := ts.Next(); ok {
		ts.Phase = next.Phase
	}
	return ts
}

// Next returns the first incomplete step.
func (t TaskState) Next() (Step, bool) {
	for _, s := range t.Steps {
		if !s.Completed {
			return s, true
		}
	}
	return Step{}, false
}

// Done counts completed steps.
func (t TaskState) Done() int {
	n := 0
	for _, s := range t.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}

func allDrafted(st *session.State) bool {
	if len(st.Outline) == 0 {
		return false
	}
	for _, sec := range st.Outline {
		if _, ok := st.Sections[sec.ID]; !ok {
			return false
		}
	}
	return true
}
