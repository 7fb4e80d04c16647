// Package provider adapts heterogeneous LLM vendor APIs to one
// internal contract. Every adapter returns the same normalized
// chat.ChatResult shape; callers never see vendor wire formats.
package provider

import (
	"context"
	"time"

	"sidekick/chat"
)

// ProviderType identifies a supported vendor.
type ProviderType string

const (
	ProviderGLM       ProviderType = "glm"
	ProviderKimi      ProviderType = "kimi"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Provider is the single operation every vendor adapter implements.
// Chat performs exactly one completion call: no internal retries, no
// streaming. Failures come back as *chat.Error; the caller decides
// whether chat.Retryable justifies another attempt.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error)
}

// Config carries everything needed to construct an adapter.
type Config struct {
	Type    ProviderType
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultTimeout bounds a single vendor call when the config does not
// say otherwise.
const DefaultTimeout = 120 * time.Second
