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

// Package config loads dealdraft configuration.
//
// Priority: CLI flags > environment variables > config file > defaults.
// A .env file in the working directory or the data directory is loaded into
// the environment first, and API keys missing after that are looked up in the
// system keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/llm/factory"
)

const (
	// DefaultConfigFileName is the name of the config file, without extension
	DefaultConfigFileName = "dealdraft"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "DEALDRAFT"
)

// Config holds all configuration for a dealdraft host.
type Config struct {
	// DataDir is computed from DEALDRAFT_DATA_DIR and never read from the file.
	DataDir string `mapstructure:"-"`

	LLM       LLMConfig       `mapstructure:"llm"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // anthropic, bedrock, gemini, mock

	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"` // From env/keyring only
	AnthropicModel   string `mapstructure:"anthropic_model"`
	AnthropicBaseURL string `mapstructure:"anthropic_base_url"`

	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockProfile         string `mapstructure:"bedrock_profile"`
	BedrockModelID         string `mapstructure:"bedrock_model_id"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`     // From env/keyring only
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"` // From env/keyring only
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`     // From env/keyring only

	GeminiAPIKey string `mapstructure:"gemini_api_key"` // From env/keyring only
	GeminiModel  string `mapstructure:"gemini_model"`

	MockResponses []string `mapstructure:"mock_responses"`

	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// GatewayConfig controls retry, timeout and client-side rate limiting.
type GatewayConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"`
	InitialDelayMs    int     `mapstructure:"initial_delay_ms"`
	MaxDelayMs        int     `mapstructure:"max_delay_ms"`
	Multiplier        float64 `mapstructure:"multiplier"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`     // per attempt, 0 = none
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // 0 = unlimited
	Burst             int     `mapstructure:"burst"`
}

// AgentsConfig controls agent definitions and the tool loop.
type AgentsConfig struct {
	// DefinitionsFile is a YAML file of agent definitions. Empty uses the
	// embedded defaults.
	DefinitionsFile string `mapstructure:"definitions_file"`
	MaxRounds       int    `mapstructure:"max_rounds"`
}

// RetrievalConfig selects the retrieval index.
type RetrievalConfig struct {
	Backend string `mapstructure:"backend"` // memory or sqlite
	Path    string `mapstructure:"path"`    // sqlite database path
	TopK    int    `mapstructure:"top_k"`

	// Corpora maps corpus names (policy, precedent, benchmark) to directories
	// ingested at startup.
	Corpora map[string]string `mapstructure:"corpora"`
}

// StorageConfig holds optional persistence paths. Empty keeps data in memory.
type StorageConfig struct {
	UsagePath    string `mapstructure:"usage_path"`
	MessagesPath string `mapstructure:"messages_path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

// ConfigurationError reports an invalid or missing setting. It is fatal at
// startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.anthropic_base_url", "")
	v.SetDefault("llm.bedrock_region", "us-west-2")
	v.SetDefault("llm.bedrock_profile", "")
	v.SetDefault("llm.bedrock_model_id", "us.anthropic.claude-sonnet-4-5-20250929-v1:0")
	v.SetDefault("llm.bedrock_access_key_id", "")
	v.SetDefault("llm.bedrock_secret_access_key", "")
	v.SetDefault("llm.bedrock_session_token", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 4096)

	v.SetDefault("gateway.max_attempts", 4)
	v.SetDefault("gateway.initial_delay_ms", 250)
	v.SetDefault("gateway.max_delay_ms", 8000)
	v.SetDefault("gateway.multiplier", 2.0)
	v.SetDefault("gateway.timeout_seconds", 120)
	v.SetDefault("gateway.requests_per_second", 0)
	v.SetDefault("gateway.burst", 1)

	v.SetDefault("agents.definitions_file", "")
	v.SetDefault("agents.max_rounds", 5)

	v.SetDefault("retrieval.backend", "memory")
	v.SetDefault("retrieval.path", "")
	v.SetDefault("retrieval.top_k", 5)

	v.SetDefault("storage.usage_path", "")
	v.SetDefault("storage.messages_path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration into a Config. cfgFile overrides the search path.
// v may be nil, in which case the global viper instance is used so that
// flags bound with viper.BindPFlag take effect.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	dataDir := GetDataDir()

	loadDotEnv(".env", filepath.Join(dataDir, ".env"))

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dataDir)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dealdraft/")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// DEALDRAFT_LLM_PROVIDER -> llm.provider
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.DataDir = dataDir

	// keyring may be unavailable (headless hosts); secrets can still come from env
	_ = LoadSecretsFromKeyring(&cfg)

	return &cfg, nil
}

// loadDotEnv loads each existing file. Variables already in the environment
// win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Validate checks the settings needed to build a session.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
			return &ConfigurationError{Field: "llm.anthropic_api_key", Reason: "not set (use DEALDRAFT_LLM_ANTHROPIC_API_KEY, ANTHROPIC_API_KEY or the keyring)"}
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" && os.Getenv("GEMINI_API_KEY") == "" {
			return &ConfigurationError{Field: "llm.gemini_api_key", Reason: "not set (use DEALDRAFT_LLM_GEMINI_API_KEY, GEMINI_API_KEY or the keyring)"}
		}
	case "bedrock", "mock":
	default:
		return &ConfigurationError{Field: "llm.provider", Reason: fmt.Sprintf("unsupported provider %q", c.LLM.Provider)}
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return &ConfigurationError{Field: "llm.temperature", Reason: "must be between 0 and 2"}
	}
	if c.LLM.MaxTokens <= 0 {
		return &ConfigurationError{Field: "llm.max_tokens", Reason: "must be positive"}
	}
	if c.Gateway.MaxAttempts < 1 {
		return &ConfigurationError{Field: "gateway.max_attempts", Reason: "must be at least 1"}
	}
	if c.Agents.MaxRounds < 1 {
		return &ConfigurationError{Field: "agents.max_rounds", Reason: "must be at least 1"}
	}

	switch c.Retrieval.Backend {
	case "memory":
	case "sqlite":
		if c.Retrieval.Path == "" {
			return &ConfigurationError{Field: "retrieval.path", Reason: "required for the sqlite backend"}
		}
	default:
		return &ConfigurationError{Field: "retrieval.backend", Reason: fmt.Sprintf("unsupported backend %q", c.Retrieval.Backend)}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ConfigurationError{Field: "logging.format", Reason: "must be json or console"}
	}
	return nil
}

// FactoryConfig converts the LLM section for the provider factory.
func (c *Config) FactoryConfig() factory.FactoryConfig {
	return factory.FactoryConfig{
		DefaultProvider:        c.LLM.Provider,
		AnthropicAPIKey:        c.LLM.AnthropicAPIKey,
		AnthropicModel:         c.LLM.AnthropicModel,
		AnthropicBaseURL:       c.LLM.AnthropicBaseURL,
		BedrockRegion:          c.LLM.BedrockRegion,
		BedrockAccessKeyID:     c.LLM.BedrockAccessKeyID,
		BedrockSecretAccessKey: c.LLM.BedrockSecretAccessKey,
		BedrockSessionToken:    c.LLM.BedrockSessionToken,
		BedrockProfile:         c.LLM.BedrockProfile,
		BedrockModelID:         c.LLM.BedrockModelID,
		GeminiAPIKey:           c.LLM.GeminiAPIKey,
		GeminiModel:            c.LLM.GeminiModel,
		MockResponses:          c.LLM.MockResponses,
		MaxTokens:              c.LLM.MaxTokens,
		Temperature:            c.LLM.Temperature,
	}
}

// RetryConfig converts the gateway section into a retry policy.
func (c *Config) RetryConfig() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts:  c.Gateway.MaxAttempts,
		InitialDelay: time.Duration(c.Gateway.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(c.Gateway.MaxDelayMs) * time.Millisecond,
		Multiplier:   c.Gateway.Multiplier,
	}
}

// Timeout is the per-attempt model call timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// RateLimiterConfig converts the gateway section into a limiter config.
func (c *Config) RateLimiterConfig() llm.RateLimiterConfig {
	return llm.RateLimiterConfig{
		RequestsPerSecond: c.Gateway.RequestsPerSecond,
		BurstCapacity:     c.Gateway.Burst,
	}
}

// MaskSecret shows only the first and last four characters of a secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
