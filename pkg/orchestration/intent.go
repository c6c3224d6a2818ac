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
	"errors"
	"fmt"
	"strings"
)

// Intent is the closed set of things a user turn can ask for.
type Intent string

const (
	IntentAnalyze              Intent = "analyze"
	IntentEnhance              Intent = "enhance"
	IntentDiscoverRequirements Intent = "discover-requirements"
	IntentCheckCompliance      Intent = "check-compliance"
	IntentGenerateOutline      Intent = "generate-outline"
	IntentDraftSection         Intent = "draft-section"
	IntentQueryAgent           Intent = "query-agent"
	IntentShowLog              Intent = "show-log"
	IntentGeneral              Intent = "general"
)

// Intents lists every intent in workflow order.
var Intents = []Intent{
	IntentAnalyze,
	IntentEnhance,
	IntentDiscoverRequirements,
	IntentCheckCompliance,
	IntentGenerateOutline,
	IntentDraftSection,
	IntentQueryAgent,
	IntentShowLog,
	IntentGeneral,
}

var intentDescriptions = map[Intent]string{
	IntentAnalyze:              "extract deal insights from uploaded documents",
	IntentEnhance:              "deepen existing insights with benchmarks and precedents",
	IntentDiscoverRequirements: "derive documentation and policy requirements from the insights",
	IntentCheckCompliance:      "check insights and drafted sections against the requirements",
	IntentGenerateOutline:      "plan the outline of the memo",
	IntentDraftSection:         "draft or revise one section of the memo",
	IntentQueryAgent:           "ask a named agent (analyst, compliance, writer) a question directly",
	IntentShowLog:              "show the retrieval and agent message logs",
	IntentGeneral:              "anything else, answered from the current context",
}

// ErrUnknownIntent is returned for labels outside the closed set.
var ErrUnknownIntent = errors.New("unknown intent")

// ParseIntent maps a label to an Intent. Case, surrounding quotes and the
// separator style ("check_compliance", "Check Compliance") are ignored.
func ParseIntent(label string) (Intent, error) {
	norm := strings.ToLower(strings.Trim(strings.TrimSpace(label), "\"'\x60.!"))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	for _, in := range Intents {
		if string(in) == norm {
			return in, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIntent, label)
}

// Description returns a one-line description of the intent.
func (i Intent) Description() string {
	return intentDescriptions[i]
}

// Classification is the classifier's reading of a user turn.
type Classification struct {
	Intent Intent `json:"intent"`
	// Target names the outline section for draft-section.
	Target string `json:"target,omitempty"`
	// Agent names the recipient for query-agent.
	Agent      string  `json:"agent,omitempty"`
	Confidence float64 `json:"confidence"`
}
