package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/legalyze/internal/util"
)

// Default endpoints for OpenAI-compatible providers
var defaultBaseURLs = map[string]string{
	"mistral":  "https://api.mistral.ai/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"openai":   "https://api.openai.com/v1",
}

// Default models when none is configured
var defaultModels = map[string]string{
	"mistral":  "mistral-large-latest",
	"deepseek": "deepseek-chat",
	"openai":   openai.GPT4oMini,
}

// OpenAIProvider talks to any OpenAI-compatible chat completions API
// (OpenAI, Mistral, DeepSeek).
type OpenAIProvider struct {
	name    string
	client  *openai.Client
	baseURL string
	config  Config
}

// NewOpenAIProvider creates a provider for OpenAI itself
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	return NewOpenAICompatibleProvider("openai", config)
}

// NewOpenAICompatibleProvider creates a provider for name using its default endpoint
// unless config.BaseURL is set
func NewOpenAICompatibleProvider(name string, config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL
	if clientConfig.BaseURL == "" {
		clientConfig.BaseURL = defaultBaseURLs[name]
	}
	clientConfig.BaseURL = strings.TrimSuffix(clientConfig.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}

	if config.Model == "" {
		config.Model = defaultModels[name]
	}

	return &OpenAIProvider{
		name:    name,
		client:  openai.NewClientWithConfig(clientConfig),
		baseURL: clientConfig.BaseURL,
		config:  config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the configured model
func (p *OpenAIProvider) Model() string {
	return p.config.Model
}

// BaseURL returns the API endpoint in use
func (p *OpenAIProvider) BaseURL() string {
	return p.baseURL
}

// IsAvailable lists models as a lightweight credentials check
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		slog.Warn("LLM availability check failed", "provider", p.name, "error", err)
		return false
	}
	return true
}

// Complete runs a chat completion
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   p.config.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      respModel,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
