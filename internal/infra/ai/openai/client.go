package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/jailbreak-firewall/internal/domain/scoring"
	"github.com/bryanwahyu/jailbreak-firewall/internal/infra/ai/prompt"
)

const (
	maxTokens    = 512
	defaultModel = "gpt-4o-mini"
)

// Client scores prompts with an OpenAI-compatible chat model instead of the
// standalone engine. It answers with the same six-field object.
type Client struct {
	*openai.Client
	Model   string
	baseURL string
}

// NewClient builds a scorer. baseURL may be empty for the public API.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, baseURL: cfg.BaseURL}
}

func (c *Client) Endpoint() string { return c.baseURL }

func (c *Client) Score(ctx context.Context, userPrompt string) (scoring.Result, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(userPrompt)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return scoring.Result{}, fmt.Errorf("%w: quota exceeded: %v", scoring.ErrUnavailable, err)
		}
		return scoring.Result{}, fmt.Errorf("%w: create chat completion: %v", scoring.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return scoring.Result{}, fmt.Errorf("%w: empty completion", scoring.ErrUnavailable)
	}

	return scoring.Parse([]byte(resp.Choices[0].Message.Content))
}
