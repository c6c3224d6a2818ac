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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDataDir(t *testing.T) {
	t.Run("default to ~/.dealdraft", func(t *testing.T) {
		t.Setenv(DataDirEnv, "")

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(homeDir, ".dealdraft"), GetDataDir())
	})

	t.Run("use env when set", func(t *testing.T) {
		t.Setenv(DataDirEnv, "/custom/dealdraft")
		assert.Equal(t, "/custom/dealdraft", GetDataDir())
	})

	t.Run("expand ~", func(t *testing.T) {
		t.Setenv(DataDirEnv, "~/deals")

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(homeDir, "deals"), GetDataDir())
	})

	t.Run("relative path made absolute", func(t *testing.T) {
		t.Setenv(DataDirEnv, "relative/path")

		dataDir := GetDataDir()
		assert.True(t, filepath.IsAbs(dataDir))
		assert.True(t, strings.HasSuffix(dataDir, filepath.Join("relative", "path")))
	})
}

func TestGetSubDir(t *testing.T) {
	t.Setenv(DataDirEnv, "/data")
	assert.Equal(t, filepath.Join("/data", "corpora"), GetSubDir("corpora"))
}
