package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/legalyze/internal/model"
)

// apiKeyEnv names the environment variable holding each provider's key
var apiKeyEnv = map[string]string{
	"mistral":   "MISTRAL_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"claude":    "ANTHROPIC_API_KEY",
}

// NewProvider creates a provider for config.Provider.
// An empty provider name returns (nil, nil): the operation is disabled.
func NewProvider(config Config) (Provider, error) {
	name := strings.ToLower(config.Provider)

	switch name {
	case "mistral", "deepseek", "openai":
		return NewOpenAICompatibleProvider(name, config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: mistral, deepseek, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel builds a provider config from one configured endpoint.
// A missing API key is read from the provider's environment variable.
func ConfigFromModel(pc model.ProviderConfig, llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	apiKey := pc.APIKey
	if apiKey == "" {
		if env, ok := apiKeyEnv[strings.ToLower(pc.Provider)]; ok {
			apiKey = os.Getenv(env)
		}
	}

	return Config{
		Provider:   pc.Provider,
		Model:      pc.Model,
		APIKey:     apiKey,
		BaseURL:    pc.BaseURL,
		Timeout:    llmCfg.Timeout,
		MaxTokens:  llmCfg.MaxTokens,
		HTTPProxy:  httpCfg.HTTPProxy,
		HTTPSProxy: httpCfg.HTTPSProxy,
		NoProxy:    httpCfg.NoProxy,
	}
}

// APIKeyEnv returns the environment variable read for provider's API key
func APIKeyEnv(provider string) string {
	return apiKeyEnv[strings.ToLower(provider)]
}
