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

package communication

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDBPath(t *testing.T) string {
	tmpDir := t.TempDir()
	return filepath.Join(tmpDir, "messages.db")
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, testDBPath(t))
	require.NoError(t, err)
	defer store.Close()

	first := sampleMessage("m1", "q1")
	second := sampleMessage("m2", "q2")
	second.Failed = true
	require.NoError(t, store.Append(ctx, "sess", first))
	require.NoError(t, store.Append(ctx, "sess", second))
	require.NoError(t, store.Append(ctx, "other", sampleMessage("m3", "q3")))

	msgs, err := store.List(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, first.Response, msgs[0].Response)
	assert.True(t, first.Timestamp.Equal(msgs[0].Timestamp))
	assert.Equal(t, first.Duration, msgs[0].Duration)
	assert.False(t, msgs[0].Failed)
	assert.True(t, msgs[1].Failed)

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "sess"}, ids)
}

func TestSQLiteStore_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, testDBPath(t))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(ctx, "sess", sampleMessage("dup", "q")))
	assert.Error(t, store.Append(ctx, "sess", sampleMessage("dup", "q")))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t)

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "sess", sampleMessage("m1", "q1")))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	msgs, err := store.List(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "q1", msgs[0].Query)
}
