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

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/dealdraft/pkg/config"
	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/orchestration"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

func loadConfig(t *testing.T, settings map[string]interface{}) *config.Config {
	t.Helper()
	t.Setenv(config.DataDirEnv, t.TempDir())
	keyring.MockInit()

	v := viper.New()
	v.Set("llm.provider", "mock")
	for k, val := range settings {
		v.Set(k, val)
	}
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_GeneralTurn(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{
		"llm.mock_responses": []string{"general", "Hello from the mock backend."},
	})

	var chunks []string
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{
		OnChunk: func(s string) { chunks = append(chunks, s) },
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	resp, err := a.Process(context.Background(), "hi there", nil)
	require.NoError(t, err)
	assert.Equal(t, orchestration.IntentGeneral, resp.Intent)
	assert.Equal(t, "Hello from the mock backend.", resp.Text)
	assert.Equal(t, "Hello from the mock backend.", strings.Join(chunks, ""))
	assert.Len(t, a.State().History, 2)

	totals, err := a.Usage(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, orchestration.CallerClassifier, totals[0].Caller)
	assert.Equal(t, orchestration.CallerGeneral, totals[1].Caller)
}

func TestNew_LoadsCorpora(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "limits.txt"),
		[]byte("The single obligor limit is 25 million USD."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.bin"), []byte{0x00}, 0o600))

	cfg := loadConfig(t, map[string]interface{}{
		"retrieval.corpora": map[string]string{"policy": dir},
	})

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	hits, err := a.Retriever.Search(context.Background(), "policy", "obligor limit", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "limits.txt", hits[0].Source)
}

func TestNew_MissingCorpusDir(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{
		"retrieval.corpora": map[string]string{"policy": filepath.Join(t.TempDir(), "missing")},
	})

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load corpus policy")
}

func TestNew_SQLiteStores(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, map[string]interface{}{
		"retrieval.backend":     "sqlite",
		"retrieval.path":        filepath.Join(dir, "index.db"),
		"storage.usage_path":    filepath.Join(dir, "usage.db"),
		"storage.messages_path": filepath.Join(dir, "messages.db"),
		"llm.mock_responses":    []string{"general", "ok"},
	})

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)

	_, err = a.Process(context.Background(), "hello", nil)
	require.NoError(t, err)
	totals, err := a.Usage(context.Background())
	require.NoError(t, err)
	assert.Len(t, totals, 2)
	require.NoError(t, a.Close())

	for _, name := range []string{"index.db", "usage.db", "messages.db"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestNew_ProviderOverride(t *testing.T) {
	cfg := loadConfig(t, nil)
	provider := &llm.MockProvider{Handler: func(_ context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
		if req.Caller == orchestration.CallerClassifier {
			return &types.LLMResponse{Content: `{"intent": "show-log"}`}, nil
		}
		return &types.LLMResponse{Content: "unexpected"}, nil
	}}

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{Provider: provider})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	resp, err := a.Process(context.Background(), "show me the log", nil)
	require.NoError(t, err)
	assert.Equal(t, orchestration.IntentShowLog, resp.Intent)
	assert.Equal(t, 1, provider.CallCount())
}

func TestNew_BadDefinitionsFile(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{
		"agents.definitions_file": filepath.Join(t.TempDir(), "agents.yaml"),
	})

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load agent definitions")
}

func TestExport_NothingDrafted(t *testing.T) {
	cfg := loadConfig(t, nil)
	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.Export(context.Background(), filepath.Join(t.TempDir(), "memo.md"))
	assert.ErrorContains(t, err, "nothing to export")
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.txt")
	require.NoError(t, os.WriteFile(path, []byte("Acme Corp term loan"), 0o600))

	files, err := Upload(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "brief.txt", files[0].Name)

	_, err = Upload(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
