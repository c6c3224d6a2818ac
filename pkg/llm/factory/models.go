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
package factory

import "sort"

// ModelInfo describes a supported model.
type ModelInfo struct {
	ID                 string
	Name               string
	Provider           string
	Capabilities       []string
	ContextWindow      int
	CostPer1MInputUSD  float64
	CostPer1MOutputUSD float64
	Available          bool
}

// ModelRegistry holds information about all supported models across providers.
type ModelRegistry struct {
	models map[string][]ModelInfo
}

// NewModelRegistry creates a new model registry with all supported models.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: map[string][]ModelInfo{
			"anthropic": {
				{
					ID:                 "claude-sonnet-4-5-20250929",
					Name:               "Claude Sonnet 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "claude-haiku-4-5-20251001",
					Name:               "Claude Haiku 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  1.0,
					CostPer1MOutputUSD: 5.0,
				},
				{
					ID:                 "claude-opus-4-5-20251101",
					Name:               "Claude Opus 4.5",
					Provider:           "anthropic",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  5.0,
					CostPer1MOutputUSD: 25.0,
				},
			},
			"bedrock": {
				{
					ID:                 "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
					Name:               "Claude Sonnet 4.5 (Bedrock)",
					Provider:           "bedrock",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  3.0,
					CostPer1MOutputUSD: 15.0,
				},
				{
					ID:                 "us.anthropic.claude-haiku-4-5-20251001-v1:0",
					Name:               "Claude Haiku 4.5 (Bedrock)",
					Provider:           "bedrock",
					Capabilities:       []string{"text", "vision", "tool-use"},
					ContextWindow:      200000,
					CostPer1MInputUSD:  1.0,
					CostPer1MOutputUSD: 5.0,
				},
			},
			"gemini": {
				{
					ID:                 "gemini-2.5-flash",
					Name:               "Gemini 2.5 Flash",
					Provider:           "gemini",
					Capabilities:       []string{"text", "vision"},
					ContextWindow:      1000000,
					CostPer1MInputUSD:  0.30,
					CostPer1MOutputUSD: 2.50,
				},
				{
					ID:                 "gemini-2.5-pro",
					Name:               "Gemini 2.5 Pro",
					Provider:           "gemini",
					Capabilities:       []string{"text", "vision"},
					ContextWindow:      1000000,
					CostPer1MInputUSD:  1.25,
					CostPer1MOutputUSD: 10.0,
				},
			},
			"mock": {
				{
					ID:           "mock-model",
					Name:         "Scripted mock",
					Provider:     "mock",
					Capabilities: []string{"text", "tool-use"},
				},
			},
		},
	}
}

// GetModelsForProvider returns all models for a specific provider.
func (r *ModelRegistry) GetModelsForProvider(provider string) []ModelInfo {
	models := r.models[provider]
	if models == nil {
		return nil
	}
	return cloneModels(models)
}

// GetAllModels returns all models from all providers, ordered by provider.
func (r *ModelRegistry) GetAllModels() []ModelInfo {
	providers := make([]string, 0, len(r.models))
	for p := range r.models {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	var all []ModelInfo
	for _, p := range providers {
		all = append(all, cloneModels(r.models[p])...)
	}
	return all
}

// GetAvailableModels returns every model, marking those whose provider is
// configured in factory as available.
func (r *ModelRegistry) GetAvailableModels(factory *ProviderFactory) []ModelInfo {
	all := r.GetAllModels()
	for i := range all {
		all[i].Available = factory.IsProviderAvailable(all[i].Provider)
	}
	return all
}

func cloneModels(models []ModelInfo) []ModelInfo {
	out := make([]ModelInfo, len(models))
	for i, m := range models {
		m.Capabilities = append([]string(nil), m.Capabilities...)
		out[i] = m
	}
	return out
}
