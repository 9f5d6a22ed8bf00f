// Package llmprovider abstracts over the LLM backends that turn a
// prompt's assembled context into generated file content, per spec.md
// §4.5. It deliberately does not stream: the pipeline driver needs a
// complete response before it can parse and reconcile files, so unlike
// this package's agentic-loop ancestor, requests are synchronous.
package llmprovider

import (
	"context"
	"net/http"
)

// Message is one turn of conversation sent to the provider.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// GenerateRequest carries everything a provider needs to produce one
// prompt's generated output.
type GenerateRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	Seed        *int64
	MaxTokens   int
}

// Usage reports token counts for cost accounting, per spec.md §4.9.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// GenerateResponse is a provider's completed reply.
type GenerateResponse struct {
	Text  string
	Usage Usage
}

// Provider is the capability every LLM backend implements.
type Provider interface {
	// Generate sends req and returns the completed response. Failures are
	// returned as *ProviderError (or *ErrMaxRetriesExceeded once retries
	// are exhausted) so callers can branch on FailureClass.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Identify returns a short string naming the backend, for
	// logging and generation-record metadata.
	Identify() string
}

// ClientConfig configures either backend.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Retry      RetryConfig
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Retry.MaxRetries == 0 && c.Retry.InitialBackoff == 0 {
		c.Retry = DefaultRetryConfig()
	}
	return c
}

// New constructs a Provider for the given backend name ("openai" covers
// any OpenAI/LiteLLM-compatible endpoint; "anthropic" covers the
// Anthropic Messages API), per spec.md §4.5's two-backend requirement.
func New(backend string, cfg ClientConfig) (Provider, error) {
	cfg = cfg.withDefaults()
	switch backend {
	case "openai":
		return &openAIProvider{config: cfg}, nil
	case "anthropic":
		return &anthropicProvider{config: cfg}, nil
	default:
		return nil, &UnknownBackendError{Backend: backend}
	}
}

// UnknownBackendError is returned by New for an unrecognized backend name.
type UnknownBackendError struct {
	Backend string
}

func (e *UnknownBackendError) Error() string {
	return "llmprovider: unknown backend " + e.Backend
}
