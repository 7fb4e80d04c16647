// Package testutil provides scripted fakes for provider consumers.
package testutil

import (
	"context"
	"sync"

	"sidekick/chat"
)

// MockProvider is a scripted Provider. Each Chat call consumes the
// next Step; running past the script fails with a vendor error. All
// received requests are recorded for assertions.
type MockProvider struct {
	mu       sync.Mutex
	Steps    []Step
	Requests []chat.ChatRequest

	// ChatFunc, when set, overrides the script entirely.
	ChatFunc func(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error)
}

// Step is one scripted Chat outcome.
type Step struct {
	Result *chat.ChatResult
	Err    error
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if len(m.Requests) > len(m.Steps) {
		return nil, &chat.Error{Kind: chat.KindVendor, Vendor: "mock", Message: "script exhausted"}
	}
	step := m.Steps[len(m.Requests)-1]
	return step.Result, step.Err
}

// Calls reports how many Chat calls were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// TextResult builds a plain assistant completion.
func TextResult(vendor, content string) *chat.ChatResult {
	return &chat.ChatResult{
		Vendor: vendor,
		Choices: []chat.ChatChoice{{
			Message:      chat.ChatMessage{Role: chat.RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
		Usage: chat.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// ToolCallResult builds a completion that requests the given tool
// calls.
func ToolCallResult(vendor, content string, calls ...chat.ToolCall) *chat.ChatResult {
	return &chat.ChatResult{
		Vendor: vendor,
		Choices: []chat.ChatChoice{{
			Message: chat.ChatMessage{
				Role:      chat.RoleAssistant,
				Content:   content,
				ToolCalls: calls,
			},
			FinishReason: "tool_calls",
		}},
		Usage: chat.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}
