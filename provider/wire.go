package provider

import (
	"encoding/json"
	"sort"

	"sidekick/chat"
)

// wireMessages serializes internal messages to the OpenAI wire form
// used by GLM and Kimi. Assistant tool calls become the tool_calls
// array with JSON-encoded argument strings; tool results carry their
// originating call id.
func wireMessages(messages []chat.ChatMessage) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		m := map[string]any{
			"role":    string(msg.Role),
			"content": msg.Content,
		}
		if len(msg.ToolCalls) > 0 {
			calls := make([]map[string]any, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   call.ID,
					"type": "function",
					"function": map[string]any{
						"name":      call.Name,
						"arguments": encodeArguments(call.Arguments),
					},
				})
			}
			m["tool_calls"] = calls
		}
		if msg.Role == chat.RoleTool && msg.ToolCallID != "" {
			m["tool_call_id"] = msg.ToolCallID
		}
		out = append(out, m)
	}
	return out
}

// wireTools serializes tool definitions to the OpenAI function-tool
// schema. Required parameter names are sorted so identical defs always
// produce identical payloads.
func wireTools(tools []chat.ToolDef) []map[string]any {
	if len(tools) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  toolParametersSchema(tool),
			},
		})
	}
	return out
}

// toolParametersSchema builds the JSON Schema object for one tool.
func toolParametersSchema(tool chat.ToolDef) map[string]any {
	properties := make(map[string]any, len(tool.Params))
	var required []string
	for name, param := range tool.Params {
		prop := map[string]any{"type": param.Type}
		if param.Description != "" {
			prop["description"] = param.Description
		}
		for k, v := range param.Schema {
			prop[k] = v
		}
		properties[name] = prop
		if param.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// encodeArguments renders a tool-call argument map back to the JSON
// string the wire format expects. encoding/json sorts map keys, so the
// encoding is canonical.
func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}
