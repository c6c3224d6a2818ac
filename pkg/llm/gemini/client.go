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

// Package gemini implements the Google Gemini backend on the genai SDK.
//
// The client runs in text-tag tool mode: it reports SupportsToolCalling
// false, so the agent loop describes tools in the prompt and parses
// invocations out of the reply. Tool results arrive as user turns.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultMaxTokens   = 8192
	DefaultTemperature = 1.0
)

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
}

// Client implements types.LLMProvider and types.StreamingLLMProvider.
type Client struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float64
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens), // #nosec G115 -- bounded by config validation
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "gemini"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// SupportsToolCalling reports false; tools are driven through text tags.
func (c *Client) SupportsToolCalling() bool {
	return false
}

// Chat sends a conversation to Gemini and returns the response.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
	model, contents, gc, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		return nil, classifyError(err)
	}
	return convertResponse(model, resp, resp.Text()), nil
}

// ChatStream streams text chunks to tokenCallback.
func (c *Client) ChatStream(ctx context.Context, req *types.ChatRequest, tokenCallback types.TokenCallback) (*types.LLMResponse, error) {
	model, contents, gc, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	var (
		text strings.Builder
		last *genai.GenerateContentResponse
	)
	for chunk, err := range c.client.Models.GenerateContentStream(ctx, model, contents, gc) {
		if err != nil {
			return nil, classifyError(err)
		}
		last = chunk
		piece := chunk.Text()
		if piece == "" {
			continue
		}
		text.WriteString(piece)
		if tokenCallback != nil {
			tokenCallback(piece)
		}
	}

	resp := convertResponse(model, last, text.String())
	resp.Metadata["streaming"] = true
	return resp, nil
}

func (c *Client) buildRequest(req *types.ChatRequest) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	contents := convertMessages(req.Messages)
	if len(contents) == 0 {
		return "", nil, nil, &llm.FatalError{Provider: "gemini", Err: errors.New("no valid messages to send")}
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens) // #nosec G115 -- request budget
	}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return model, contents, gc, nil
}

// convertMessages maps the conversation onto Gemini's two roles. Tool
// results and assistant tool calls are rendered as text. Adjacent turns with
// the same role are merged.
func convertMessages(messages []types.Message) []*genai.Content {
	var out []*genai.Content

	appendText := func(role genai.Role, text string) {
		if text == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == string(role) {
			out[n-1].Parts = append(out[n-1].Parts, genai.NewPartFromText(text))
			return
		}
		out = append(out, genai.NewContentFromText(text, role))
	}

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleAssistant:
			text := msg.Content
			for _, tc := range msg.ToolCalls {
				text += fmt.Sprintf("\n[called %s with %v]", tc.Name, tc.Input)
			}
			appendText(genai.RoleModel, strings.TrimSpace(text))
		case types.RoleTool:
			name := msg.ToolName
			if name == "" {
				name = "tool"
			}
			appendText(genai.RoleUser, fmt.Sprintf("Result from %s:\n%s", name, msg.Content))
		default:
			appendText(genai.RoleUser, msg.Content)
		}
	}
	return out
}

func convertResponse(model string, resp *genai.GenerateContentResponse, text string) *types.LLMResponse {
	out := &types.LLMResponse{
		Content:  text,
		Metadata: map[string]interface{}{"model": model},
	}
	if resp == nil {
		return out
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.StopReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage.InputTokens = int(u.PromptTokenCount)
		out.Usage.OutputTokens = int(u.CandidatesTokenCount)
		out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens
		out.Usage.CostUSD = llm.EstimateCost(model, out.Usage.InputTokens, out.Usage.OutputTokens)
	}
	return out
}

func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus("gemini", apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.ClassifyStatus("gemini", apiErrPtr.Code, err)
	}
	return llm.ClassifyStatus("gemini", 0, err)
}

var (
	_ types.LLMProvider          = (*Client)(nil)
	_ types.StreamingLLMProvider = (*Client)(nil)
	_ types.ToolCallingProvider  = (*Client)(nil)
)
