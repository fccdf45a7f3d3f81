package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cosmos-link/webgen/internal/metrics"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	defaultOpenAIModel   = openai.GPT3Dot5Turbo
	defaultDeepSeekModel = "deepseek-chat"
)

// OpenAIClient implements Completer for any OpenAI-compatible endpoint
type OpenAIClient struct {
	provider     string
	baseURL      string
	apiKey       string
	defaultModel string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		provider:     ProviderOpenAI,
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: model,
	}
}

// NewDeepSeekClient creates a client for DeepSeek's OpenAI-compatible API
func NewDeepSeekClient(apiKey, baseURL, model string) *OpenAIClient {
	if model == "" {
		model = defaultDeepSeekModel
	}
	return &OpenAIClient{
		provider:     ProviderDeepSeek,
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: model,
	}
}

// Provider returns the provider name
func (c *OpenAIClient) Provider() string {
	return c.provider
}

// Complete sends the prompt and returns the model's raw answer
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	client := openai.NewClientWithConfig(config)

	start := time.Now()
	resp, err := client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: SystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
		},
	)
	metrics.RecordCompletion(c.provider, time.Since(start), err == nil)

	if err != nil {
		return "", fmt.Errorf("failed to call %s API: %w", c.provider, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
