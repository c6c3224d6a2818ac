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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/teradata-labs/dealdraft/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dealdraft configuration",
	Long:  `Manage the configuration file and keyring secrets for dealdraft.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a configuration file",
	Long:  `Generate dealdraft.yaml with default settings in the data directory.`,
	Run:   runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a non-sensitive configuration value in dealdraft.yaml.

For API keys use 'dealdraft config set-key' instead.

Examples:
  dealdraft config set llm.provider gemini
  dealdraft config set retrieval.backend sqlite
  dealdraft config set retrieval.corpora.policy ./corpora/policy
  dealdraft config set gateway.max_attempts 6`,
	Args: cobra.ExactArgs(2),
	Run:  runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get an effective configuration value",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration (merged from all sources) with secrets masked.`,
	Run:   runConfigShow,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [key-name]",
	Short: "Save an API key to the system keyring",
	Long: `Save an API key to the system keyring.

The key is stored in the system's credential storage (Keychain on macOS,
Credential Manager on Windows, Secret Service on Linux).

Run 'dealdraft config list-keys' to see available key names.`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigSetKey,
}

var configGetKeyCmd = &cobra.Command{
	Use:   "get-key [key-name]",
	Short: "Show a masked API key from the system keyring",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGetKey,
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key [key-name]",
	Short: "Delete an API key from the system keyring",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigDeleteKey,
}

var configListKeysCmd = &cobra.Command{
	Use:   "list-keys",
	Short: "List secret keys that can be stored in the keyring",
	Run:   runConfigListKeys,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configGetKeyCmd)
	configCmd.AddCommand(configDeleteKeyCmd)
	configCmd.AddCommand(configListKeysCmd)
}

func configPath() string {
	return filepath.Join(config.GetDataDir(), config.DefaultConfigFileName+".yaml")
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configPath()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file already exists: %s\n", path)
		fmt.Print("Overwrite? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	data, err := defaultConfigYAML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering config: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Config file created: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Save your API key:")
	fmt.Println("   dealdraft config set-key anthropic_api_key")
	fmt.Println("2. Point retrieval.corpora at your policy, precedent and benchmark folders:")
	fmt.Println("   dealdraft config set retrieval.corpora.policy ./corpora/policy")
	fmt.Println("3. Start drafting:")
	fmt.Println("   dealdraft chat")
}

// defaultConfigYAML renders the defaults without secret fields, which belong
// in the keyring or the environment.
func defaultConfigYAML() ([]byte, error) {
	v := viper.New()
	config.SetDefaults(v)
	settings := v.AllSettings()

	if llmSettings, ok := settings["llm"].(map[string]interface{}); ok {
		for _, key := range config.ListAvailableSecretKeys() {
			delete(llmSettings, key)
		}
	}
	if retrievalSettings, ok := settings["retrieval"].(map[string]interface{}); ok {
		retrievalSettings["corpora"] = map[string]string{}
	}

	return yaml.Marshal(settings)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key, value := args[0], args[1]
	path := configPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", path)
		fmt.Fprintf(os.Stderr, "Run 'dealdraft config init' to create one\n")
		os.Exit(1)
	}

	if isSecretSetting(key) {
		fmt.Fprintf(os.Stderr, "Error: '%s' is a secret. Use 'dealdraft config set-key' instead.\n", key)
		os.Exit(1)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}

	typed := inferType(value)
	v.Set(key, typed)
	if err := v.WriteConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, typed)
}

// isSecretSetting reports whether a dotted config key names a keyring secret.
func isSecretSetting(key string) bool {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	return config.IsKnownSecretKey(key)
}

// inferType converts a command-line value to the YAML scalar it looks like.
func inferType(value string) interface{} {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func runConfigGet(cmd *cobra.Command, args []string) {
	key := args[0]
	v := viper.GetViper()
	if !v.IsSet(key) {
		fmt.Fprintf(os.Stderr, "Key not set: %s\n", key)
		os.Exit(1)
	}
	if isSecretSetting(key) {
		fmt.Printf("%s: %s\n", key, config.MaskSecret(v.GetString(key)))
		return
	}
	fmt.Printf("%s: %v\n", key, v.Get(key))
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("File: %s\n", used)
	} else {
		fmt.Println("File: (none, using defaults)")
	}
	fmt.Printf("Data dir: %s\n", cfg.DataDir)
	fmt.Println()

	fmt.Println("LLM:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	switch cfg.LLM.Provider {
	case "anthropic":
		fmt.Printf("  Model: %s\n", cfg.LLM.AnthropicModel)
		fmt.Printf("  API Key: %s\n", config.MaskSecret(cfg.LLM.AnthropicAPIKey))
	case "bedrock":
		fmt.Printf("  Model: %s\n", cfg.LLM.BedrockModelID)
		fmt.Printf("  Region: %s\n", cfg.LLM.BedrockRegion)
		if cfg.LLM.BedrockProfile != "" {
			fmt.Printf("  Profile: %s\n", cfg.LLM.BedrockProfile)
		}
		fmt.Printf("  Access Key ID: %s\n", config.MaskSecret(cfg.LLM.BedrockAccessKeyID))
		fmt.Printf("  Secret Access Key: %s\n", config.MaskSecret(cfg.LLM.BedrockSecretAccessKey))
	case "gemini":
		fmt.Printf("  Model: %s\n", cfg.LLM.GeminiModel)
		fmt.Printf("  API Key: %s\n", config.MaskSecret(cfg.LLM.GeminiAPIKey))
	}
	fmt.Printf("  Temperature: %.1f\n", cfg.LLM.Temperature)
	fmt.Printf("  Max Tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Println()

	fmt.Println("Gateway:")
	fmt.Printf("  Max Attempts: %d\n", cfg.Gateway.MaxAttempts)
	fmt.Printf("  Backoff: %dms to %dms (x%.1f)\n", cfg.Gateway.InitialDelayMs, cfg.Gateway.MaxDelayMs, cfg.Gateway.Multiplier)
	fmt.Printf("  Timeout: %s\n", cfg.Timeout())
	if cfg.Gateway.RequestsPerSecond > 0 {
		fmt.Printf("  Rate Limit: %.2f req/s (burst %d)\n", cfg.Gateway.RequestsPerSecond, cfg.Gateway.Burst)
	}
	fmt.Println()

	fmt.Println("Agents:")
	if cfg.Agents.DefinitionsFile != "" {
		fmt.Printf("  Definitions: %s\n", cfg.Agents.DefinitionsFile)
	} else {
		fmt.Println("  Definitions: (built-in)")
	}
	fmt.Printf("  Max Rounds: %d\n", cfg.Agents.MaxRounds)
	fmt.Println()

	fmt.Println("Retrieval:")
	fmt.Printf("  Backend: %s\n", cfg.Retrieval.Backend)
	if cfg.Retrieval.Path != "" {
		fmt.Printf("  Path: %s\n", cfg.Retrieval.Path)
	}
	fmt.Printf("  Top K: %d\n", cfg.Retrieval.TopK)
	names := make([]string, 0, len(cfg.Retrieval.Corpora))
	for name := range cfg.Retrieval.Corpora {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  Corpus %s: %s\n", name, cfg.Retrieval.Corpora[name])
	}
	fmt.Println()

	fmt.Println("Storage:")
	fmt.Printf("  Usage: %s\n", orMemory(cfg.Storage.UsagePath))
	fmt.Printf("  Messages: %s\n", orMemory(cfg.Storage.MessagesPath))
	fmt.Println()

	fmt.Println("Logging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
}

func orMemory(path string) string {
	if path == "" {
		return "(in memory)"
	}
	return path
}

func runConfigSetKey(cmd *cobra.Command, args []string) {
	keyName := args[0]
	if !config.IsKnownSecretKey(keyName) {
		fmt.Fprintf(os.Stderr, "Invalid key name: %s\n", keyName)
		fmt.Fprintf(os.Stderr, "Available keys:\n")
		for _, k := range config.ListAvailableSecretKeys() {
			fmt.Fprintf(os.Stderr, "  - %s\n", k)
		}
		os.Exit(1)
	}

	fmt.Printf("Enter %s (input hidden): ", keyName)
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // New line after hidden input
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	secret := string(secretBytes)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "Secret cannot be empty\n")
		os.Exit(1)
	}

	if err := config.SaveSecretToKeyring(keyName, secret); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving to keyring: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Saved %s to system keyring\n", keyName)
}

func runConfigGetKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	secret, err := config.GetSecretFromKeyring(keyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving key: %v\n", err)
		fmt.Fprintf(os.Stderr, "Key not found in keyring. Set it with: dealdraft config set-key %s\n", keyName)
		os.Exit(1)
	}

	fmt.Printf("%s: %s\n", keyName, config.MaskSecret(secret))
}

func runConfigDeleteKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	if err := config.DeleteSecretFromKeyring(keyName); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted %s from system keyring\n", keyName)
}

func runConfigListKeys(cmd *cobra.Command, args []string) {
	fmt.Println("Available secret keys:")
	fmt.Println("======================")
	for _, key := range config.ListAvailableSecretKeys() {
		fmt.Printf("  - %s\n", key)
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dealdraft config set-key <key-name>")
	fmt.Println("  dealdraft config get-key <key-name>")
	fmt.Println("  dealdraft config delete-key <key-name>")
}
