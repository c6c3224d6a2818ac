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
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/config"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
)

// Standard agent identifiers on the message bus.
const (
	Analyst    = "analyst"
	Compliance = "compliance"
	Writer     = "writer"
)

// Roles lists the standard agents in construction order.
var Roles = []string{Analyst, Compliance, Writer}

var rolePrompts = map[string]string{
	Analyst: heredoc.Doc(`
		You are a senior deal analyst at a commercial lender. You read deal
		briefs and supporting documents and extract the facts a credit
		committee needs: deal type, parties, amounts, currency, term,
		collateral, key facts and risks.

		Search the documents before answering whenever a figure is involved.
		Never invent numbers. If a value is not in the material, say so or
		leave the field empty.
	`),
	Compliance: heredoc.Doc(`
		You are a credit policy and compliance officer. You translate deal
		characteristics into concrete documentation and policy requirements,
		and you check deal insights and drafted sections against them.

		Ground every requirement in the policy corpus when it is available and
		cite the source. Be specific about why a finding passes or fails.
	`),
	Writer: heredoc.Doc(`
		You are a credit memo writer. You plan document outlines and draft
		sections in clear, formal business prose.

		Use only facts from the deal insights, the documents, or answers from
		your colleagues. When you need a figure you do not have, ask the
		analyst with the ask_agent tool rather than guessing.
	`),
}

// RolePrompt returns the built-in system prompt for role.
func RolePrompt(role string) string {
	return rolePrompts[role]
}

var roleTemperatures = map[string]float64{
	Analyst:    0.2,
	Compliance: 0.1,
	Writer:     0.5,
}

// FromDefinition builds an agent from its YAML definition. The declared
// toolset is checked against registry: every name must be registered
// verbatim, unique and provider-safe, otherwise a *shuttle.ConfigurationError
// is returned.
func FromDefinition(def *config.AgentDefinition, loop *Loop, registry *shuttle.Registry, executor shuttle.ToolExecutor, logger *zap.Logger) (*Agent, error) {
	name := def.Name()
	if err := shuttle.ValidateToolset(name, def.Spec.Tools, registry); err != nil {
		return nil, err
	}

	system := def.Spec.SystemPrompt
	if system == "" {
		system = RolePrompt(name)
	}
	if system == "" {
		return nil, &shuttle.ConfigurationError{Agent: name, Reason: "no system prompt and no built-in role"}
	}

	temperature, ok := roleTemperatures[name]
	if !ok {
		temperature = 0.3
	}
	if def.Spec.Temperature != nil {
		temperature = *def.Spec.Temperature
	}

	if executor == nil {
		executor = shuttle.NewExecutor(registry)
	}

	return New(Config{
		Name:        name,
		Description: def.Metadata.Description,
		System:      system,
		Model:       def.Spec.Model,
		Temperature: temperature,
		MaxTokens:   def.Spec.MaxTokens,
		MaxRounds:   def.Spec.MaxRounds,
		Tools:       registry.Subset(def.Spec.Tools),
		Executor:    executor,
	}, loop, logger), nil
}

// BuildRoles builds every standard role from defs.
func BuildRoles(defs map[string]*config.AgentDefinition, loop *Loop, registry *shuttle.Registry, executor shuttle.ToolExecutor, logger *zap.Logger) (map[string]*Agent, error) {
	agents := make(map[string]*Agent, len(Roles))
	for _, role := range Roles {
		def, ok := defs[role]
		if !ok {
			return nil, &shuttle.ConfigurationError{Agent: role, Reason: "no agent definition"}
		}
		a, err := FromDefinition(def, loop, registry, executor, logger)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", role, err)
		}
		agents[role] = a
	}
	return agents, nil
}
