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

// Package factory builds the configured model backend.
package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/llm/anthropic"
	"github.com/teradata-labs/dealdraft/pkg/llm/gemini"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

// ProviderFactory creates LLM providers based on configuration.
type ProviderFactory struct {
	config FactoryConfig
}

// FactoryConfig holds configuration for creating LLM providers.
type FactoryConfig struct {
	// Default provider to use
	DefaultProvider string
	DefaultModel    string

	// Anthropic configuration
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	// Bedrock configuration
	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string
	BedrockModelID         string

	// Gemini configuration
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Mock responses, consumed in order (tests and offline demos)
	MockResponses []string

	// Common settings
	MaxTokens   int
	Temperature float64
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(config FactoryConfig) *ProviderFactory {
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	return &ProviderFactory{config: config}
}

// CreateProvider creates an LLM provider for the given provider type and
// model. Empty values fall back to the configured defaults.
func (f *ProviderFactory) CreateProvider(ctx context.Context, provider, model string) (types.LLMProvider, error) {
	if provider == "" {
		provider = f.config.DefaultProvider
	}
	if model == "" {
		model = f.config.DefaultModel
	}

	switch provider {
	case "anthropic", "":
		return f.createAnthropicProvider(ctx, model)
	case "bedrock":
		return f.createBedrockProvider(ctx, model)
	case "gemini":
		return f.createGeminiProvider(ctx, model)
	case "mock":
		return f.createMockProvider(model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (f *ProviderFactory) createAnthropicProvider(ctx context.Context, model string) (types.LLMProvider, error) {
	apiKey := f.config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}

	if model == "" {
		model = f.config.AnthropicModel
	}

	return anthropic.NewClient(ctx, anthropic.Config{
		APIKey:      apiKey,
		BaseURL:     f.config.AnthropicBaseURL,
		Model:       model,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
	})
}

func (f *ProviderFactory) createBedrockProvider(ctx context.Context, model string) (types.LLMProvider, error) {
	if model == "" {
		model = f.config.BedrockModelID
	}

	region := f.config.BedrockRegion
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return anthropic.NewClient(ctx, anthropic.Config{
		Model:       model,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
		Bedrock: &anthropic.BedrockConfig{
			Region:          region,
			Profile:         f.config.BedrockProfile,
			AccessKeyID:     f.config.BedrockAccessKeyID,
			SecretAccessKey: f.config.BedrockSecretAccessKey,
			SessionToken:    f.config.BedrockSessionToken,
		},
	})
}

func (f *ProviderFactory) createGeminiProvider(ctx context.Context, model string) (types.LLMProvider, error) {
	apiKey := f.config.GeminiAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured (set llm.gemini_api_key or GEMINI_API_KEY)")
	}

	if model == "" {
		model = f.config.GeminiModel
	}

	return gemini.NewClient(ctx, gemini.Config{
		APIKey:      apiKey,
		BaseURL:     f.config.GeminiBaseURL,
		Model:       model,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
	})
}

func (f *ProviderFactory) createMockProvider(model string) types.LLMProvider {
	mock := llm.NewMockProvider(f.config.MockResponses...)
	if model != "" {
		mock.ModelID = model
	}
	return &llm.MockStreamingProvider{MockProvider: mock}
}

// IsProviderAvailable reports whether credentials for provider are present.
// Bedrock relies on the AWS credential chain and is always reported
// available.
func (f *ProviderFactory) IsProviderAvailable(provider string) bool {
	switch provider {
	case "anthropic":
		return f.config.AnthropicAPIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != ""
	case "gemini":
		return f.config.GeminiAPIKey != "" || os.Getenv("GEMINI_API_KEY") != ""
	case "bedrock", "mock":
		return true
	default:
		return false
	}
}
