// Package ai hosts the model-backed collaborators: conversational responder,
// content classifier and translators. All of them share one Anthropic client.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel = "claude-3-5-haiku-latest"

	defaultMaxTokens = int64(512)
)

type Client struct {
	client *anthropic.Client
	model  string
}

// NewClient builds a client for apiKey. baseURL and model may be empty.
func NewClient(apiKey, baseURL, model string, opts ...option.RequestOption) *Client {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		all = append(all, option.WithBaseURL(base))
	}
	all = append(all, opts...)
	client := anthropic.NewClient(all...)
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: &client, model: model}
}

// complete sends a single user turn and returns the last text block of the answer.
func (c *Client) complete(ctx context.Context, system, text string, maxTokens int64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var last string
	for _, block := range resp.Content {
		if block.Type == "text" {
			last = block.AsText().Text
		}
	}
	if strings.TrimSpace(last) == "" {
		return "", fmt.Errorf("claude API call: empty answer")
	}
	return strings.TrimSpace(last), nil
}
