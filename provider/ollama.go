package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"sidekick/chat"
)

// DefaultOllamaHost is the local Ollama server address.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaProvider runs local models through the Ollama API. The typed
// response is re-marshaled and pushed through the shared normalizer so
// raw payload retention holds for local models too.
type OllamaProvider struct {
	client *api.Client
}

// NewOllamaProvider creates the Ollama adapter. No API key: the server
// is local.
func NewOllamaProvider(host string, timeout time.Duration) (*OllamaProvider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &OllamaProvider{
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
	}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error) {
	spec := ResolveModel(ProviderOllama, req.Model)

	stream := false
	ollamaReq := &api.ChatRequest{
		Model:    spec.Name,
		Messages: toOllamaMessages(req.Messages),
		Stream:   &stream,
		Options: map[string]any{
			"temperature": effectiveTemperature(req.Temperature, spec),
			"num_predict": effectiveMaxTokens(req.MaxTokens, spec),
		},
	}
	if req.TopP != nil {
		ollamaReq.Options["top_p"] = *req.TopP
	}
	if len(req.Tools) > 0 && req.ToolChoice != chat.ToolChoiceNone {
		ollamaReq.Tools = toOllamaTools(req.Tools)
	}

	var final api.ChatResponse
	err := p.client.Chat(ctx, ollamaReq, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, classifyStatus("ollama", statusErr.StatusCode, "", statusErr.ErrorMessage)
		}
		return nil, transportError("ollama", err)
	}

	raw, err := json.Marshal(final)
	if err != nil {
		return nil, &chat.Error{Kind: chat.KindVendor, Vendor: "ollama", Message: err.Error()}
	}
	return Normalize(raw, ollamaFieldMap(), spec.Name)
}

func ollamaFieldMap() FieldMap {
	fm := openAIFieldMap("ollama")
	fm.FunctionCall = ""
	fm.Reshape = reshapeOllama
	return fm
}

// reshapeOllama lifts Ollama's top-level message/done_reason/eval
// counters into the choices form.
func reshapeOllama(payload map[string]any) map[string]any {
	return map[string]any{
		"model": payload["model"],
		"choices": []any{map[string]any{
			"message":       payload["message"],
			"finish_reason": payload["done_reason"],
		}},
		"usage": map[string]any{
			"prompt_tokens":     payload["prompt_eval_count"],
			"completion_tokens": payload["eval_count"],
		},
	}
}

func toOllamaMessages(messages []chat.ChatMessage) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		m := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		for _, call := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      call.Name,
					Arguments: api.ToolCallFunctionArguments(call.Arguments),
				},
			})
		}
		out = append(out, m)
	}
	return out
}

func toOllamaTools(tools []chat.ToolDef) []api.Tool {
	out := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Properties: make(map[string]api.ToolProperty, len(tool.Params)),
		}
		for name, param := range tool.Params {
			params.Properties[name] = api.ToolProperty{
				Type:        api.PropertyType{param.Type},
				Description: param.Description,
			}
			if param.Required {
				params.Required = append(params.Required, name)
			}
		}
		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
