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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage(id, query string) AgentMessage {
	return AgentMessage{
		ID:        id,
		From:      "writer",
		To:        "analyst",
		Query:     query,
		Response:  "answer to " + query,
		Timestamp: time.Unix(1700000000, 0),
		Duration:  1500 * time.Microsecond,
	}
}

func TestMemoryStore_AppendAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", sampleMessage("1", "q1")))
	require.NoError(t, store.Append(ctx, "a", sampleMessage("2", "q2")))
	require.NoError(t, store.Append(ctx, "b", sampleMessage("3", "q3")))

	msgs, err := store.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q1", msgs[0].Query)
	assert.Equal(t, "q2", msgs[1].Query)

	empty, err := store.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestMemoryStore_ClosedRejectsAppend(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	assert.Error(t, store.Append(context.Background(), "a", sampleMessage("1", "q")))
}

func TestNewMessageStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	store, err := NewMessageStoreFromConfig(ctx, StoreConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewMessageStoreFromConfig(ctx, StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = NewMessageStoreFromConfig(ctx, StoreConfig{Backend: "sqlite"})
	assert.Error(t, err)

	_, err = NewMessageStoreFromConfig(ctx, StoreConfig{Backend: "redis"})
	assert.ErrorContains(t, err, "unknown store backend")
}
