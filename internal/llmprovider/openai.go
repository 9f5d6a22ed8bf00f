package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// openAIProvider speaks the OpenAI chat-completions wire format, which
// also covers LiteLLM-proxied backends.
type openAIProvider struct {
	config ClientConfig
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string               `json:"model"`
	Messages    []openAIChatMessage  `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
	Seed        *int64               `json:"seed,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	wire := openAIRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Seed:        req.Seed,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: marshal openai request: %w", err)
	}

	url := p.config.BaseURL + "/chat/completions"
	resp, err := doWithRetry(ctx, p.config.Retry, func(ctx context.Context) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if p.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
		}
		return p.config.HTTPClient.Do(httpReq)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, classifyError(resp)
	}

	var wireResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Class: FailureMalformed, Message: err.Error()}
	}
	if len(wireResp.Choices) == 0 || wireResp.Choices[0].Message.Content == "" {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Class: FailureEmpty, Message: "no content in response"}
	}

	return &GenerateResponse{
		Text: wireResp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  wireResp.Usage.PromptTokens,
			OutputTokens: wireResp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *openAIProvider) Identify() string {
	return "openai"
}
