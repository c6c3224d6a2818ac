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

package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/dealdraft/pkg/types"
)

// TokenCounter estimates token counts for backends that do not report usage.
// Uses tiktoken with cl100k_base, a close enough approximation for Claude
// and Gemini.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	globalTokenCounter *TokenCounter
	counterInitOnce    sync.Once
)

// GetTokenCounter returns the shared counter. If the encoding cannot be
// loaded the counter falls back to len/4.
func GetTokenCounter() *TokenCounter {
	counterInitOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			globalTokenCounter = &TokenCounter{}
			return
		}
		globalTokenCounter = &TokenCounter{encoder: tkm}
	})
	return globalTokenCounter
}

// NewApproxTokenCounter returns a counter that only uses the len/4 estimate.
func NewApproxTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// CountTokens returns the token count for text.
func (tc *TokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if tc.encoder == nil {
		n := len(text) / 4
		if n == 0 {
			n = 1
		}
		return n
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.encoder.Encode(text, nil, nil))
}

// EstimateRequestTokens estimates the input size of req, including ~10
// tokens of framing per message.
func (tc *TokenCounter) EstimateRequestTokens(req *types.ChatRequest) int {
	total := tc.CountTokens(req.System)
	for _, msg := range req.Messages {
		total += 10
		total += tc.CountTokens(msg.Content)
		for _, call := range msg.ToolCalls {
			total += tc.CountTokens(call.Name) + 10
		}
	}
	for _, tool := range req.Tools {
		total += tc.CountTokens(tool.Name()) + tc.CountTokens(tool.Description()) + 20
	}
	return total
}
