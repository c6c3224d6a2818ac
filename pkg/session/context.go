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

package session

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey indexes the identifiers a turn threads through its context.
type ctxKey int

const (
	keySession ctxKey = iota
	keyAgent
)

// WithSessionID tags ctx with the session a turn belongs to. Bus messages
// are persisted under it. An empty id leaves ctx unchanged.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withID(ctx, keySession, sessionID)
}

// SessionIDFromContext returns the session id, or "".
func SessionIDFromContext(ctx context.Context) string {
	return idFrom(ctx, keySession)
}

// WithAgentID tags ctx with the role whose tool loop is running. The
// ask_agent and search tools attribute their calls to it, and a nested ask
// replaces it for the responding role.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return withID(ctx, keyAgent, agentID)
}

// AgentIDFromContext returns the running agent, or "".
func AgentIDFromContext(ctx context.Context) string {
	return idFrom(ctx, keyAgent)
}

// LogFields returns session_id and agent fields for the ids ctx carries.
func LogFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("session_id", id))
	}
	if id := AgentIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("agent", id))
	}
	return fields
}

func withID(ctx context.Context, key ctxKey, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key ctxKey) string {
	id, _ := ctx.Value(key).(string)
	return id
}
