package provider

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"sidekick/chat"
)

// OpenAIProvider calls OpenAI through the official SDK. The SDK only
// handles transport and auth; its response is re-normalized from the
// raw body so every vendor flows through the same code path, and its
// internal retries are disabled because retry policy belongs to the
// caller.
type OpenAIProvider struct {
	client openai.Client
	apiKey string
}

// NewOpenAIProvider creates the OpenAI adapter.
func NewOpenAIProvider(baseURL, apiKey string, timeout time.Duration) *OpenAIProvider {
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
	return &OpenAIProvider{client: openai.NewClient(opts...), apiKey: apiKey}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResult, error) {
	if p.apiKey == "" {
		return nil, missingKeyError("openai", "OPENAI_API_KEY")
	}

	spec := ResolveModel(ProviderOpenAI, req.Model)
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(spec.Name),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(effectiveTemperature(req.Temperature, spec)),
		MaxTokens:   openai.Int(int64(effectiveMaxTokens(req.MaxTokens, spec))),
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
		if req.ToolChoice != "" && req.ToolChoice != chat.ToolChoiceAuto {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String(string(req.ToolChoice)),
			}
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, classifyBody("openai", apiErr.StatusCode, []byte(apiErr.RawJSON()))
		}
		return nil, transportError("openai", err)
	}

	return Normalize([]byte(resp.RawJSON()), openAIFieldMap("openai"), spec.Name)
}

func toOpenAIMessages(messages []chat.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case chat.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(msg.ToolCalls)),
			}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: encodeArguments(call.Arguments),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case chat.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(tools []chat.ToolDef) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := toolParametersSchema(tool)
		out = append(out, openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(schema),
			},
		))
	}
	return out
}
