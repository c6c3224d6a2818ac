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
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/session"
)

func echo(prefix string) ResponderFunc {
	return func(ctx context.Context, question, shared string) (string, error) {
		return prefix + question, nil
	}
}

func TestBusQueryRegistered(t *testing.T) {
	tracer := observability.NewMockTracer()
	bus := NewBus(nil, tracer, zaptest.NewLogger(t))
	bus.Register("analyst", echo("analyst says: "))

	msg := bus.Query(context.Background(), "writer", "analyst", "revenue?", "section 2")

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "writer", msg.From)
	assert.Equal(t, "analyst", msg.To)
	assert.Equal(t, "revenue?", msg.Query)
	assert.Equal(t, "analyst says: revenue?", msg.Response)
	assert.False(t, msg.Failed)
	assert.False(t, msg.Timestamp.IsZero())

	require.Equal(t, 1, bus.Len())
	assert.Equal(t, msg, bus.Log()[0])

	span := tracer.GetSpanByName(observability.SpanBusQuery)
	require.NotNil(t, span)
	assert.Equal(t, "writer", span.Attributes[observability.AttrBusFrom])
	assert.Equal(t, "analyst", span.Attributes[observability.AttrBusTo])
	assert.Equal(t, "ok", span.Attributes["bus.status"])
	assert.Len(t, tracer.GetMetrics(observability.MetricBusQueries), 1)
}

func TestBusQueryUnregisteredIsInlineAndLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := NewBus(nil, nil, zap.New(core))

	ctx := session.WithSessionID(context.Background(), "sess-9")
	answer := bus.Ask(ctx, "writer", "treasurer", "fx rate?", "")

	assert.Equal(t, ResponseNotRegistered, answer)
	require.Equal(t, 1, bus.Len())
	assert.True(t, bus.Log()[0].Failed)

	entries := logs.FilterMessage("bus query to unregistered agent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "treasurer", entries[0].ContextMap()["to"])
	assert.Equal(t, "sess-9", entries[0].ContextMap()["session_id"])
	assert.Equal(t, int64(1), bus.Stats().Unregistered)
}

func TestBusQueryResponderErrorIsInline(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(nil, nil, zap.New(core))
	bus.Register("analyst", ResponderFunc(func(ctx context.Context, q, s string) (string, error) {
		return "", errors.New("model unavailable")
	}))

	msg := bus.Query(context.Background(), "writer", "analyst", "q", "")

	assert.Equal(t, "[agent error: model unavailable]", msg.Response)
	assert.True(t, msg.Failed)
	assert.Equal(t, 1, logs.FilterMessage("bus responder failed").Len())
	assert.Equal(t, int64(1), bus.Stats().Failed)
}

func TestBusSharedContextReachesResponder(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	var got string
	bus.Register("compliance", ResponderFunc(func(ctx context.Context, q, shared string) (string, error) {
		got = shared
		return "ok", nil
	}))

	bus.Ask(context.Background(), "writer", "compliance", "does this pass?", "draft text")
	assert.Equal(t, "draft text", got)
}

func TestBusSinceAndReset(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	bus.Register("analyst", echo(""))
	ctx := context.Background()

	bus.Ask(ctx, "writer", "analyst", "one", "")
	mark := bus.Len()
	bus.Ask(ctx, "writer", "analyst", "two", "")
	bus.Ask(ctx, "writer", "analyst", "three", "")

	since := bus.Since(mark)
	require.Len(t, since, 2)
	assert.Equal(t, "two", since[0].Query)
	assert.Equal(t, "three", since[1].Query)
	assert.Nil(t, bus.Since(3))
	assert.Len(t, bus.Since(-1), 3)

	// copies do not alias the log
	since[0].Response = "mutated"
	assert.Equal(t, "two", bus.Log()[1].Response)

	bus.Reset()
	assert.Zero(t, bus.Len())
	assert.True(t, bus.Registered("analyst"))
}

func TestBusNestedQuery(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	bus.Register("compliance", echo("policy: "))
	bus.Register("analyst", ResponderFunc(func(ctx context.Context, q, s string) (string, error) {
		return bus.Ask(ctx, "analyst", "compliance", q, s), nil
	}))

	answer := bus.Ask(context.Background(), "writer", "analyst", "ltv limit?", "")
	assert.Equal(t, "policy: ltv limit?", answer)
	assert.Equal(t, 2, bus.Len())
}

func TestBusConcurrentQueries(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	bus.Register("analyst", echo(""))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Ask(context.Background(), "writer", "analyst", "q", "")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, bus.Len())
	assert.Equal(t, int64(20), bus.Stats().TotalQueries)
}

func TestBusMirrorsToStore(t *testing.T) {
	store := NewMemoryStore()
	bus := NewBus(store, nil, zaptest.NewLogger(t))
	bus.Register("analyst", echo(""))

	ctx := session.WithSessionID(context.Background(), "sess-1")
	bus.Ask(ctx, "writer", "analyst", "q1", "")
	bus.Ask(ctx, "writer", "nobody", "q2", "")

	msgs, err := store.List(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, bus.Log(), msgs)
}

func TestBusStoreFailureIsNotSurfaced(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	core, logs := observer.New(zap.WarnLevel)
	bus := NewBus(store, nil, zap.New(core))
	bus.Register("analyst", echo("a: "))

	answer := bus.Ask(context.Background(), "writer", "analyst", "q", "")
	assert.Equal(t, "a: q", answer)
	assert.Equal(t, 1, logs.FilterMessage("failed to persist bus message").Len())
}

func TestBusAgents(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	bus.Register("writer", echo(""))
	bus.Register("analyst", echo(""))
	assert.Equal(t, []string{"analyst", "writer"}, bus.Agents())
	assert.False(t, bus.Registered("compliance"))
}

func TestAskAgentTool(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	bus.Register("analyst", ResponderFunc(func(ctx context.Context, q, shared string) (string, error) {
		return strings.ToUpper(q) + "|" + shared, nil
	}))
	tool := NewAskAgentTool(bus, "analyst")

	ctx := session.WithAgentID(context.Background(), "writer")
	res, err := tool.Execute(ctx, map[string]interface{}{"question": "margin?", "context": "sec 3"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "MARGIN?|sec 3", res.Text())

	msg := bus.Log()[0]
	assert.Equal(t, "writer", msg.From)
	assert.Equal(t, "analyst", msg.To)
	assert.Equal(t, msg.ID, res.Metadata["message_id"])
}

func TestAskAgentToolUnknownAgent(t *testing.T) {
	bus := NewBus(nil, nil, nil)
	tool := NewAskAgentTool(bus, "analyst")

	res, err := tool.Execute(context.Background(), map[string]interface{}{"question": "q", "agent": " Treasurer "})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, ResponseNotRegistered, res.Text())
	assert.Equal(t, "user", bus.Log()[0].From)
	assert.Equal(t, "treasurer", bus.Log()[0].To)
}

func TestAskAgentToolSchema(t *testing.T) {
	tool := NewAskAgentTool(NewBus(nil, nil, nil), "analyst")
	schema := tool.InputSchema()
	assert.Equal(t, []string{"question"}, schema.Required)
	assert.Contains(t, schema.Properties, "agent")
	assert.Equal(t, AskAgentToolName, tool.Name())
}
