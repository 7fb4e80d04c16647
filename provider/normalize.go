package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"sidekick/chat"
)

// FieldMap tells the normalizer where a vendor keeps each piece of a
// completion. Vendors whose payloads do not carry a choices list at
// all (Anthropic, Ollama) reshape the decoded payload first.
type FieldMap struct {
	Vendor string

	// Reshape rewrites the decoded payload into the common
	// choices-based layout before field extraction. Nil when the
	// vendor already speaks that layout.
	Reshape func(payload map[string]any) map[string]any

	Choices          string
	Message          string
	Role             string
	Content          string
	ToolCalls        string
	FunctionCall     string // legacy single-call field, "" when unused
	FinishReason     string
	Usage            string
	PromptTokens     string
	CompletionTokens string
	TotalTokens      string
}

// openAIFieldMap covers the OpenAI wire family: OpenAI itself plus the
// compatible GLM and Kimi endpoints. GLM still emits the deprecated
// function_call on some models, so the legacy field stays mapped for
// the whole family.
func openAIFieldMap(vendor string) FieldMap {
	return FieldMap{
		Vendor:           vendor,
		Choices:          "choices",
		Message:          "message",
		Role:             "role",
		Content:          "content",
		ToolCalls:        "tool_calls",
		FunctionCall:     "function_call",
		FinishReason:     "finish_reason",
		Usage:            "usage",
		PromptTokens:     "prompt_tokens",
		CompletionTokens: "completion_tokens",
		TotalTokens:      "total_tokens",
	}
}

// Normalize converts one raw vendor response body into the internal
// result shape. Tolerance rules: absent fields default instead of
// failing, tool-call arguments may arrive as a map or a JSON string
// (repaired when slightly broken, preserved under "_raw" when
// unparseable), and vendor extensions survive only in Raw.
func Normalize(raw []byte, fm FieldMap, model string) (*chat.ChatResult, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &chat.Error{
			Kind:    chat.KindVendor,
			Vendor:  fm.Vendor,
			Message: fmt.Sprintf("malformed response body: %v", err),
		}
	}

	if fm.Reshape != nil {
		payload = fm.Reshape(payload)
	}

	result := &chat.ChatResult{
		Vendor: fm.Vendor,
		Model:  model,
		Raw:    json.RawMessage(raw),
	}
	if name, ok := payload["model"].(string); ok && name != "" {
		result.Model = name
	}

	for i, item := range asList(payload[fm.Choices]) {
		choiceMap, _ := item.(map[string]any)
		result.Choices = append(result.Choices, normalizeChoice(choiceMap, fm, i))
	}

	if usageMap, ok := payload[fm.Usage].(map[string]any); ok {
		result.Usage = chat.ChatUsage{
			PromptTokens:     asInt(usageMap[fm.PromptTokens]),
			CompletionTokens: asInt(usageMap[fm.CompletionTokens]),
			TotalTokens:      asInt(usageMap[fm.TotalTokens]),
		}
	}
	if result.Usage.TotalTokens == 0 {
		result.Usage.TotalTokens = result.Usage.PromptTokens + result.Usage.CompletionTokens
	}

	return result, nil
}

func normalizeChoice(choiceMap map[string]any, fm FieldMap, index int) chat.ChatChoice {
	choice := chat.ChatChoice{Index: index}
	if choiceMap == nil {
		choice.Message = chat.ChatMessage{Role: chat.RoleAssistant}
		return choice
	}

	if idx, ok := choiceMap["index"]; ok {
		choice.Index = asInt(idx)
	}
	if reason, ok := choiceMap[fm.FinishReason].(string); ok {
		choice.FinishReason = reason
	}

	msgMap, _ := choiceMap[fm.Message].(map[string]any)
	msg := chat.ChatMessage{Role: chat.RoleAssistant}
	if msgMap != nil {
		if role, ok := msgMap[fm.Role].(string); ok && role != "" {
			msg.Role = chat.Role(role)
		}
		msg.Content = asText(msgMap[fm.Content])

		for i, item := range asList(msgMap[fm.ToolCalls]) {
			callMap, ok := item.(map[string]any)
			if !ok {
				continue
			}
			msg.ToolCalls = append(msg.ToolCalls, normalizeToolCall(callMap, i))
		}

		// Legacy single-call form predates tool_calls; GLM still
		// emits it on some model versions.
		if fm.FunctionCall != "" && len(msg.ToolCalls) == 0 {
			if callMap, ok := msgMap[fm.FunctionCall].(map[string]any); ok {
				msg.ToolCalls = append(msg.ToolCalls, normalizeToolCall(callMap, 0))
			}
		}
	}
	choice.Message = msg
	return choice
}

func normalizeToolCall(callMap map[string]any, index int) chat.ToolCall {
	call := chat.ToolCall{}
	if id, ok := callMap["id"].(string); ok {
		call.ID = id
	}
	if call.ID == "" {
		call.ID = fmt.Sprintf("call_%d", index)
	}

	fnMap, _ := callMap["function"].(map[string]any)
	if fnMap == nil {
		// Legacy function_call puts name/arguments at the top level.
		fnMap = callMap
	}
	if name, ok := fnMap["name"].(string); ok {
		call.Name = name
	}
	call.Arguments = ParseArguments(fnMap["arguments"])
	return call
}

// ParseArguments coerces a vendor's tool-call argument payload into a
// map. Maps pass through; strings get a strict parse, then a repair
// pass; anything still unparseable is preserved verbatim under the
// "_raw" key so the executor can decide what to do with it.
func ParseArguments(v any) map[string]any {
	switch args := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return args
	case string:
		trimmed := strings.TrimSpace(args)
		if trimmed == "" {
			return map[string]any{}
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
		if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil {
			if err := json.Unmarshal([]byte(repaired), &parsed); err == nil && parsed != nil {
				return parsed
			}
		}
		return map[string]any{chat.RawArgumentsKey: args}
	default:
		return map[string]any{chat.RawArgumentsKey: fmt.Sprintf("%v", args)}
	}
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

// asText flattens a content value: plain strings pass through, block
// lists concatenate their text parts, anything else is empty.
func asText(v any) string {
	switch content := v.(type) {
	case string:
		return content
	case []any:
		var sb strings.Builder
		for _, item := range content {
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := block["text"].(string); ok {
				sb.WriteString(text)
			}
		}
		return sb.String()
	}
	return ""
}
