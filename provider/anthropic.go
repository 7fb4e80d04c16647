package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"sidekick/chat"
)

// AnthropicProvider calls Claude through the official SDK. Anthropic's
// response carries content blocks instead of a choices list, so its
// field map reshapes the raw payload into the common layout before the
// shared normalizer runs.
type AnthropicProvider struct {
	client anthropic.Client
	apiKey string
}

// NewAnthropicProvider creates the Anthropic adapter.
func NewAnthropicProvider(baseURL, apiKey string, timeout time.Duration) *AnthropicProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{client: anthropic.NewClient(opts...), apiKey: apiKey}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error) {
	if p.apiKey == "" {
		return nil, missingKeyError("anthropic", "ANTHROPIC_API_KEY")
	}

	spec := ResolveModel(ProviderAnthropic, req.Model)
	messages, system := toAnthropicMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(spec.Name),
		Messages:    messages,
		MaxTokens:   int64(effectiveMaxTokens(req.MaxTokens, spec)),
		Temperature: anthropic.Float(effectiveTemperature(req.Temperature, spec)),
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
		switch req.ToolChoice {
		case chat.ToolChoiceNone:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		case chat.ToolChoiceRequired:
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, classifyBody("anthropic", apiErr.StatusCode, []byte(apiErr.RawJSON()))
		}
		return nil, transportError("anthropic", err)
	}

	return Normalize([]byte(resp.RawJSON()), anthropicFieldMap(), spec.Name)
}

func anthropicFieldMap() FieldMap {
	fm := openAIFieldMap("anthropic")
	fm.FunctionCall = ""
	fm.Reshape = reshapeAnthropic
	return fm
}

// reshapeAnthropic lifts the Messages API layout (top-level content
// blocks, stop_reason, usage.input_tokens) into the choices form the
// normalizer expects. tool_use blocks become tool_calls entries; text
// blocks are flattened by the normalizer's content handling.
func reshapeAnthropic(payload map[string]any) map[string]any {
	msg := map[string]any{
		"role":    payload["role"],
		"content": payload["content"],
	}

	var toolCalls []any
	for _, item := range asList(payload["content"]) {
		block, ok := item.(map[string]any)
		if !ok || block["type"] != "tool_use" {
			continue
		}
		toolCalls = append(toolCalls, map[string]any{
			"id": block["id"],
			"function": map[string]any{
				"name":      block["name"],
				"arguments": block["input"],
			},
		})
	}
	if toolCalls != nil {
		msg["tool_calls"] = toolCalls
	}

	usage := map[string]any{}
	if u, ok := payload["usage"].(map[string]any); ok {
		usage["prompt_tokens"] = u["input_tokens"]
		usage["completion_tokens"] = u["output_tokens"]
	}

	return map[string]any{
		"model": payload["model"],
		"choices": []any{map[string]any{
			"message":       msg,
			"finish_reason": payload["stop_reason"],
		}},
		"usage": usage,
	}
}

// toAnthropicMessages splits out system text (Anthropic takes it as a
// separate parameter) and rebuilds assistant tool calls and tool
// results as the block types the Messages API requires.
func toAnthropicMessages(messages []chat.ChatMessage) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})

		case chat.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input := json.RawMessage(encodeArguments(call.Arguments))
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case chat.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))

		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out, system
}

func toAnthropicTools(tools []chat.ToolDef) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := toolParametersSchema(tool)
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
		}
		if required, ok := schema["required"].([]string); ok {
			inputSchema.Required = required
		}
		param := anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			param.OfTool.Description = anthropic.String(tool.Description)
		}
		out = append(out, param)
	}
	return out
}
