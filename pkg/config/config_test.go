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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(DataDirEnv, dir)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	keyring.MockInit()
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 5, cfg.Agents.MaxRounds)
	assert.Equal(t, "memory", cfg.Retrieval.Backend)
	assert.Equal(t, 4, cfg.RetryConfig().MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryConfig().InitialDelay)
	assert.Equal(t, 120*time.Second, cfg.Timeout())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolate(t)

	yamlContent := `
llm:
  provider: gemini
  gemini_model: gemini-2.5-pro
  temperature: 0.3
retrieval:
  top_k: 8
  corpora:
    policy: ./policies
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dealdraft.yaml"), []byte(yamlContent), 0o600))
	t.Setenv("DEALDRAFT_LLM_GEMINI_API_KEY", "env-key")
	t.Setenv("DEALDRAFT_AGENTS_MAX_ROUNDS", "3")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.GeminiModel)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, "env-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, 3, cfg.Agents.MaxRounds)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "./policies", cfg.Retrieval.Corpora["policy"])
	require.NoError(t, cfg.Validate())

	fc := cfg.FactoryConfig()
	assert.Equal(t, "gemini", fc.DefaultProvider)
	assert.Equal(t, "env-key", fc.GeminiAPIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEALDRAFT_LLM_PROVIDER=mock\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DEALDRAFT_LLM_PROVIDER") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
}

func TestLoad_Keyring(t *testing.T) {
	isolate(t)
	require.NoError(t, SaveSecretToKeyring("anthropic_api_key", "sk-from-keyring"))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-keyring", cfg.LLM.AnthropicAPIKey)
	assert.NoError(t, cfg.Validate())

	require.NoError(t, DeleteSecretFromKeyring("anthropic_api_key"))
	_, err = GetSecretFromKeyring("anthropic_api_key")
	assert.Error(t, err)
}

func TestLoad_BadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o600))

	_, err := Load(viper.New(), path)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	isolate(t)

	base := func() *Config {
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		cfg.LLM.Provider = "mock"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing anthropic key", func(c *Config) { c.LLM.Provider = "anthropic" }, "llm.anthropic_api_key"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "ollama" }, "llm.provider"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"attempts", func(c *Config) { c.Gateway.MaxAttempts = 0 }, "gateway.max_attempts"},
		{"rounds", func(c *Config) { c.Agents.MaxRounds = 0 }, "agents.max_rounds"},
		{"sqlite needs path", func(c *Config) { c.Retrieval.Backend = "sqlite" }, "retrieval.path"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "sk-a****wxyz", MaskSecret("sk-abcdefghwxyz"))
}

func TestSecretKeys(t *testing.T) {
	assert.True(t, IsKnownSecretKey("gemini_api_key"))
	assert.False(t, IsKnownSecretKey("nope"))
	assert.Len(t, ListAvailableSecretKeys(), len(GetSecretMappings()))
}
