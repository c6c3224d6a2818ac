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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teradata-labs/dealdraft/embedded"
)

// AgentDefinitionAPIVersion is the only accepted apiVersion.
const AgentDefinitionAPIVersion = "dealdraft/v1"

// AgentDefinition is one YAML document describing an agent.
type AgentDefinition struct {
	APIVersion string        `yaml:"apiVersion"`
	Kind       string        `yaml:"kind"`
	Metadata   AgentMetadata `yaml:"metadata"`
	Spec       AgentSpec     `yaml:"spec"`
}

// AgentMetadata identifies an agent.
type AgentMetadata struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// AgentSpec configures an agent's model call and toolset.
type AgentSpec struct {
	// SystemPrompt replaces the built-in role prompt when set.
	SystemPrompt string   `yaml:"system_prompt,omitempty"`
	Model        string   `yaml:"model,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	MaxTokens    int      `yaml:"max_tokens,omitempty"`
	MaxRounds    int      `yaml:"max_rounds,omitempty"`
	Tools        []string `yaml:"tools,omitempty"`
}

// Name returns metadata.name.
func (d *AgentDefinition) Name() string {
	return d.Metadata.Name
}

// LoadAgentDefinitions reads agent definitions from path, or the embedded
// defaults when path is empty.
func LoadAgentDefinitions(path string) (map[string]*AgentDefinition, error) {
	data := embedded.GetAgents()
	if path != "" {
		var err error
		data, err = os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read agent definitions: %w", err)
		}
	}
	return ParseAgentDefinitions(data)
}

// ParseAgentDefinitions parses a multi-document YAML stream.
func ParseAgentDefinitions(data []byte) (map[string]*AgentDefinition, error) {
	defs := make(map[string]*AgentDefinition)
	dec := yaml.NewDecoder(bytes.NewReader(data))

	for i := 0; ; i++ {
		var def AgentDefinition
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid agent definition #%d: %w", i+1, err)
		}
		if err := validateDefinition(&def); err != nil {
			return nil, err
		}
		if _, dup := defs[def.Name()]; dup {
			return nil, &ConfigurationError{Field: "metadata.name", Reason: fmt.Sprintf("agent %q defined twice", def.Name())}
		}
		defs[def.Name()] = &def
	}

	if len(defs) == 0 {
		return nil, &ConfigurationError{Field: "agents", Reason: "no agent definitions found"}
	}
	return defs, nil
}

func validateDefinition(def *AgentDefinition) error {
	if def.APIVersion != AgentDefinitionAPIVersion {
		return &ConfigurationError{Field: "apiVersion", Reason: fmt.Sprintf("unsupported apiVersion %q", def.APIVersion)}
	}
	if def.Kind != "Agent" {
		return &ConfigurationError{Field: "kind", Reason: fmt.Sprintf("unsupported kind %q, expected Agent", def.Kind)}
	}
	if def.Metadata.Name == "" {
		return &ConfigurationError{Field: "metadata.name", Reason: "missing"}
	}
	if t := def.Spec.Temperature; t != nil && (*t < 0 || *t > 2) {
		return &ConfigurationError{Field: def.Metadata.Name + ".spec.temperature", Reason: "must be between 0 and 2"}
	}
	if def.Spec.MaxRounds < 0 {
		return &ConfigurationError{Field: def.Metadata.Name + ".spec.max_rounds", Reason: "must not be negative"}
	}
	return nil
}
