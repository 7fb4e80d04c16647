package provider

import (
	"fmt"
)

// NewProvider constructs the adapter for cfg.Type.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Type {
	case ProviderGLM:
		return NewGLMProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case ProviderKimi:
		return NewKimiProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// ParseProviderType validates a vendor name from config or request
// input.
func ParseProviderType(name string) (ProviderType, error) {
	switch ProviderType(name) {
	case ProviderGLM, ProviderKimi, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		return ProviderType(name), nil
	default:
		return "", fmt.Errorf("unknown vendor %q", name)
	}
}
