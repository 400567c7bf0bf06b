package llm

import (
	"fmt"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// NewProvider creates a new completion provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - structuring disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config to llm.Config
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = llmConfig.Provider
	cfg.Model = llmConfig.Model
	cfg.APIKey = llmConfig.APIKey
	cfg.BaseURL = llmConfig.BaseURL
	if llmConfig.Timeout > 0 {
		cfg.Timeout = llmConfig.Timeout
	}
	if llmConfig.MaxTokens > 0 {
		cfg.MaxTokens = llmConfig.MaxTokens
	}
	cfg.HTTPProxy = httpConfig.HTTPProxy
	cfg.HTTPSProxy = httpConfig.HTTPSProxy
	cfg.NoProxy = httpConfig.NoProxy
	return cfg
}
