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

// Package anthropic implements the Claude backend on the official SDK. The
// same client talks to the Anthropic API directly or to AWS Bedrock.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/teradata-labs/dealdraft/pkg/llm"
	"github.com/teradata-labs/dealdraft/pkg/shuttle"
	"github.com/teradata-labs/dealdraft/pkg/types"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultBedrockModel is the default Claude model ID on Bedrock
	DefaultBedrockModel = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	// DefaultBedrockRegion is used when no region is configured
	DefaultBedrockRegion = "us-west-2"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 4096
	// DefaultTemperature is the default LLM temperature
	DefaultTemperature = 0.7
)

// BedrockConfig selects the Bedrock transport. Without explicit keys or a
// profile the default AWS credential chain is used.
type BedrockConfig struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Config holds configuration for the Claude client.
type Config struct {
	// APIKey is required unless Bedrock is set.
	APIKey string

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string

	Model       string  // Default: DefaultModel or DefaultBedrockModel
	MaxTokens   int     // Default: 4096
	Temperature float64 // Default: 0.7

	Bedrock *BedrockConfig
}

// Client implements types.LLMProvider and types.StreamingLLMProvider.
type Client struct {
	client      anthropic.Client
	name        string
	model       string
	maxTokens   int64
	temperature float64
}

// NewClient creates a Claude client. Retries are left to the llm.Gateway, so
// the SDK's own retry loop is disabled.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	name := "anthropic"

	if cfg.Bedrock != nil {
		awsCfg, err := loadAWSConfig(ctx, cfg.Bedrock)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		opts = append(opts, bedrock.WithConfig(awsCfg))
		name = "bedrock"
		if cfg.Model == "" {
			cfg.Model = DefaultBedrockModel
		}
	} else {
		if cfg.APIKey == "" {
			return nil, errors.New("anthropic: api key is required")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Client{
		client:      anthropic.NewClient(opts...),
		name:        name,
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

func loadAWSConfig(ctx context.Context, bc *BedrockConfig) (aws.Config, error) {
	region := bc.Region
	if region == "" {
		region = DefaultBedrockRegion
	}

	switch {
	case bc.AccessKeyID != "" && bc.SecretAccessKey != "":
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				bc.AccessKeyID,
				bc.SecretAccessKey,
				bc.SessionToken,
			)),
		)
	case bc.Profile != "":
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithSharedConfigProfile(bc.Profile),
		)
	default:
		return config.LoadDefaultConfig(ctx, config.WithRegion(region))
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// SupportsToolCalling is always true for Claude.
func (c *Client) SupportsToolCalling() bool {
	return true
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.LLMResponse, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.classify(err)
	}
	return c.convertResponse(message), nil
}

// ChatStream streams text deltas to tokenCallback and returns the
// accumulated message once the stream ends.
func (c *Client) ChatStream(ctx context.Context, req *types.ChatRequest, tokenCallback types.TokenCallback) (*types.LLMResponse, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream event: %w", err)
		}

		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			if tokenCallback != nil {
				tokenCallback(event.Delta.Text)
			}
		}
	}

	if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, c.classify(err)
	}

	resp := c.convertResponse(&message)
	resp.Metadata["streaming"] = true
	return resp, nil
}

func (c *Client) buildParams(req *types.ChatRequest) (anthropic.MessageNewParams, error) {
	messages := convertMessages(req.Messages)
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, &llm.FatalError{
			Provider: c.name,
			Err:      errors.New("no valid messages to send"),
		}
	}

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}
	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}
	return params, nil
}

// classify maps SDK errors onto the gateway's taxonomy. Context errors are
// passed through untouched.
func (c *Client) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(c.name, apiErr.StatusCode, err)
	}
	// no HTTP response: network failure
	return llm.ClassifyStatus(c.name, 0, err)
}

// convertMessages converts conversation messages to SDK params. Consecutive
// tool results are merged into one user turn, as the API requires.
func convertMessages(messages []types.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolUseID, msg.Content, false))

		case types.RoleAssistant:
			flush()
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input interface{} = tc.Input
				if tc.Input == nil {
					input = map[string]interface{}{}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				out = append(out, anthropic.NewAssistantMessage(content...))
			}

		default:
			flush()
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
	}
	flush()
	return out
}

// convertTools converts shuttle tools to SDK tool params.
func convertTools(tools []shuttle.Tool) []anthropic.ToolUnionParam {
	unions := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		param := anthropic.ToolParam{
			Name:        tool.Name(),
			Description: anthropic.String(tool.Description()),
		}
		if schema := shuttle.NormalizeSchema(tool.InputSchema()); schema != nil {
			param.InputSchema = anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			}
		}
		unions = append(unions, anthropic.ToolUnionParam{OfTool: &param})
	}
	return unions
}

func (c *Client) convertResponse(message *anthropic.Message) *types.LLMResponse {
	resp := &types.LLMResponse{
		StopReason: string(message.StopReason),
		Usage: types.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
		Metadata: map[string]interface{}{
			"model":      string(message.Model),
			"message_id": message.ID,
		},
	}
	resp.Usage.CostUSD = llm.EstimateCost(string(message.Model), resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			var input map[string]interface{}
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &input)
			}
			if input == nil {
				input = map[string]interface{}{}
			}
			resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}
	resp.Content = text.String()
	return resp
}

var (
	_ types.LLMProvider          = (*Client)(nil)
	_ types.StreamingLLMProvider = (*Client)(nil)
	_ types.ToolCallingProvider  = (*Client)(nil)
)
