package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cosmos-link/webgen/internal/config"
)

// SystemPrompt instructs the model to emit one labelled fence per file
const SystemPrompt = `You are an AI assistant that generates code for web applications. ` +
	`Provide code snippets for each file, wrapped in triple backticks with the filename as the language specifier, ` +
	"for example:\n```src/App.tsx\n// code\n```\n" +
	`Always use the full path of the file relative to the project root.`

var (
	// ErrMissingAPIKey is returned when neither the request nor the client carries a key
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyResponse is returned when the model answers with no content
	ErrEmptyResponse = errors.New("empty response from model")
)

// Request is a single completion request
type Request struct {
	Prompt string `json:"prompt"`
	APIKey string `json:"-"`
	Model  string `json:"model,omitempty"`
}

// Completer is the interface for completion clients
type Completer interface {
	// Complete returns the raw text of the model's answer to a prompt
	Complete(ctx context.Context, req Request) (string, error)

	// Provider returns the name of the backing provider
	Provider() string
}

// NewCompleter creates the completer for a provider name
func NewCompleter(provider string, cfg config.LLMConfig) (Completer, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.DefaultModel), nil
	case ProviderDeepSeek:
		return NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DefaultModel), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
