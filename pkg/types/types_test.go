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

package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type plainProvider struct{}

func (plainProvider) Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error) {
	return &LLMResponse{Content: "ok"}, nil
}
func (plainProvider) Name() string  { return "plain" }
func (plainProvider) Model() string { return "plain-1" }

type toolProvider struct {
	plainProvider
	tools bool
}

func (p toolProvider) SupportsToolCalling() bool { return p.tools }

func (p toolProvider) ChatStream(ctx context.Context, req *ChatRequest, cb TokenCallback) (*LLMResponse, error) {
	cb("ok")
	return &LLMResponse{Content: "ok"}, nil
}

func TestCapabilityHelpers(t *testing.T) {
	assert.False(t, SupportsStreaming(plainProvider{}))
	assert.False(t, SupportsToolCalling(plainProvider{}))

	assert.True(t, SupportsStreaming(toolProvider{}))
	assert.False(t, SupportsToolCalling(toolProvider{tools: false}))
	assert.True(t, SupportsToolCalling(toolProvider{tools: true}))
}

func TestFloat64(t *testing.T) {
	p := Float64(0.4)
	assert.InDelta(t, 0.4, *p, 1e-9)
}
