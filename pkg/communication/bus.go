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

// Package communication carries questions between agents. The Bus is a
// synchronous request/response channel: Query routes a question to a
// registered Responder, waits for the answer and appends the exchange to an
// append-only log that the orchestrator mirrors into the session.
package communication

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/dealdraft/pkg/observability"
	"github.com/teradata-labs/dealdraft/pkg/session"
)

// SenderUser is the sender of questions the user asks directly.
const SenderUser = "user"

// Inline responses for queries that could not be answered.
const (
	ResponseNotRegistered = "[agent not registered]"
	responseErrorFormat   = "[agent error: %s]"
)

// Responder answers questions addressed to an agent.
type Responder interface {
	Respond(ctx context.Context, question, shared string) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, question, shared string) (string, error)

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, question, shared string) (string, error) {
	return f(ctx, question, shared)
}

// AgentMessage is one completed exchange. Response is filled before Query
// returns and never changes afterward.
type AgentMessage struct {
	ID        string
	From      string
	To        string
	Query     string
	Response  string
	Failed    bool
	Timestamp time.Time
	Duration  time.Duration
}

// Stats summarizes bus traffic.
type Stats struct {
	TotalQueries int64
	Unregistered int64
	Failed       int64
}

// Bus routes questions between agents. Safe for concurrent use. Responders
// run outside the lock, so a responder may query the bus itself.
type Bus struct {
	mu         sync.RWMutex
	responders map[string]Responder
	log        []AgentMessage

	// optional audit mirror
	store  MessageStore
	tracer observability.Tracer
	logger *zap.Logger

	totalQueries atomic.Int64
	unregistered atomic.Int64
	failed       atomic.Int64
}

// NewBus creates a bus. store may be nil; nil tracer and logger are
// replaced with no-ops.
func NewBus(store MessageStore, tracer observability.Tracer, logger *zap.Logger) *Bus {
	if tracer == nil {
		tracer = observability.NewNoOpTracer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		responders: make(map[string]Responder),
		store:      store,
		tracer:     tracer,
		logger:     logger,
	}
}

// Register binds agentID to r, replacing any previous responder.
func (b *Bus) Register(agentID string, r Responder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responders[agentID] = r
	b.logger.Debug("bus register", zap.String("agent_id", agentID))
}

// Registered reports whether agentID has a responder.
func (b *Bus) Registered(agentID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.responders[agentID]
	return ok
}

// Agents returns the registered agent IDs in name order.
func (b *Bus) Agents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.responders))
	for id := range b.responders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Query sends question to agent to on behalf of from and returns the logged
// exchange. It never fails: an unregistered target or a responder error
// produces an inline response string instead.
func (b *Bus) Query(ctx context.Context, from, to, question, shared string) AgentMessage {
	ctx, span := b.tracer.StartSpan(ctx, observability.SpanBusQuery,
		observability.WithAttribute(observability.AttrBusFrom, from),
		observability.WithAttribute(observability.AttrBusTo, to))
	defer b.tracer.EndSpan(span)

	b.totalQueries.Add(1)
	msg := AgentMessage{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Query:     question,
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	responder, ok := b.responders[to]
	b.mu.RUnlock()

	status := "ok"
	start := time.Now()
	if !ok {
		status = "not_registered"
		b.unregistered.Add(1)
		msg.Response = ResponseNotRegistered
		msg.Failed = true
		b.logger.Warn("bus query to unregistered agent", append(session.LogFields(ctx),
			zap.String("from", from),
			zap.String("to", to),
			zap.String("message_id", msg.ID))...)
	} else {
		answer, err := responder.Respond(ctx, question, shared)
		if err != nil {
			status = "error"
			b.failed.Add(1)
			msg.Response = fmt.Sprintf(responseErrorFormat, err)
			msg.Failed = true
			span.RecordError(err)
			b.logger.Error("bus responder failed", append(session.LogFields(ctx),
				zap.String("from", from),
				zap.String("to", to),
				zap.String("message_id", msg.ID),
				zap.Error(err))...)
		} else {
			msg.Response = answer
		}
	}
	msg.Duration = time.Since(start)

	b.mu.Lock()
	b.log = append(b.log, msg)
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.Append(context.WithoutCancel(ctx), session.SessionIDFromContext(ctx), msg); err != nil {
			b.logger.Warn("failed to persist bus message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	span.SetAttribute("bus.status", status)
	span.SetAttribute("message_id", msg.ID)
	b.tracer.RecordMetric(observability.MetricBusQueries, 1, map[string]string{
		observability.AttrBusFrom: from,
		observability.AttrBusTo:   to,
		"status":                  status,
	})
	b.logger.Debug("bus query",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("status", status),
		zap.Duration("latency", msg.Duration))

	return msg
}

// Ask is Query returning only the response text.
func (b *Bus) Ask(ctx context.Context, from, to, question, shared string) string {
	return b.Query(ctx, from, to, question, shared).Response
}

// Log returns a copy of every exchange in order.
func (b *Bus) Log() []AgentMessage {
	return b.Since(0)
}

// Since returns a copy of the exchanges from index n on. Callers remember Len
// before a turn and read Since afterwards to collect the turn's messages.
func (b *Bus) Since(n int) []AgentMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(b.log) {
		return nil
	}
	out := make([]AgentMessage, len(b.log)-n)
	copy(out, b.log[n:])
	return out
}

// Len returns the number of logged exchanges.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.log)
}

// Reset clears the log. Registrations are kept.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = nil
}

// Stats returns traffic counters since creation.
func (b *Bus) Stats() Stats {
	return Stats{
		TotalQueries: b.totalQueries.Load(),
		Unregistered: b.unregistered.Load(),
		Failed:       b.failed.Load(),
	}
}
