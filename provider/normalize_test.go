package provider

import (
	"testing"

	"sidekick/chat"
)

func TestNormalizeOpenAIShape(t *testing.T) {
	raw := `{
		"id": "cmpl-1",
		"model": "glm-4.6",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "hello there"},
			"finish_reason": "stop"
		}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
	}`

	result, err := Normalize([]byte(raw), openAIFieldMap("glm"), "glm-4.6")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.Vendor != "glm" {
		t.Errorf("Vendor = %q", result.Vendor)
	}
	if result.Model != "glm-4.6" {
		t.Errorf("Model = %q", result.Model)
	}
	choice := result.First()
	if choice.Message.Content != "hello there" || choice.FinishReason != "stop" {
		t.Errorf("choice = %+v", choice)
	}
	if result.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", result.Usage)
	}
	if len(result.Raw) == 0 {
		t.Error("Raw payload not retained")
	}
}

func TestNormalizeToleratesAbsentFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no choices", `{"model": "m"}`},
		{"empty choices", `{"choices": []}`},
		{"choice without message", `{"choices": [{}]}`},
		{"message without content", `{"choices": [{"message": {"role": "assistant"}}]}`},
		{"null content", `{"choices": [{"message": {"role": "assistant", "content": null}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize([]byte(tt.raw), openAIFieldMap("kimi"), "m")
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			choice := result.First()
			if choice.Message.Role != chat.RoleAssistant {
				t.Errorf("role = %q, want assistant", choice.Message.Role)
			}
			if choice.Message.Content != "" {
				t.Errorf("content = %q, want empty", choice.Message.Content)
			}
		})
	}
}

func TestNormalizeMalformedBody(t *testing.T) {
	_, err := Normalize([]byte("<html>gateway</html>"), openAIFieldMap("glm"), "m")
	if err == nil {
		t.Fatal("expected error for non-JSON body")
	}
	if chat.KindOf(err) != chat.KindVendor {
		t.Errorf("kind = %q, want vendor_error", chat.KindOf(err))
	}
}

func TestNormalizeUsageZeroFilled(t *testing.T) {
	raw := `{"choices": [{"message": {"role": "assistant", "content": "x"}}]}`
	result, err := Normalize([]byte(raw), openAIFieldMap("glm"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.Usage != (chat.ChatUsage{}) {
		t.Errorf("Usage = %+v, want zeroes", result.Usage)
	}
}

func TestNormalizeUsageTotalComputed(t *testing.T) {
	raw := `{"choices": [], "usage": {"prompt_tokens": 7, "completion_tokens": 2}}`
	result, err := Normalize([]byte(raw), openAIFieldMap("glm"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.Usage.TotalTokens != 9 {
		t.Errorf("TotalTokens = %d, want 9", result.Usage.TotalTokens)
	}
}

func TestNormalizeToolCallStringArguments(t *testing.T) {
	raw := `{"choices": [{"message": {
		"role": "assistant",
		"content": "",
		"tool_calls": [{"id": "call_abc", "type": "function", "function": {
			"name": "read_file",
			"arguments": "{\"path\": \"main.go\"}"
		}}]
	}, "finish_reason": "tool_calls"}]}`

	result, err := Normalize([]byte(raw), openAIFieldMap("kimi"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	calls := result.First().Message.ToolCalls
	if len(calls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(calls))
	}
	if calls[0].ID != "call_abc" || calls[0].Name != "read_file" {
		t.Errorf("call = %+v", calls[0])
	}
	if calls[0].Arguments["path"] != "main.go" {
		t.Errorf("arguments = %v", calls[0].Arguments)
	}
}

func TestNormalizeToolCallMapArguments(t *testing.T) {
	raw := `{"choices": [{"message": {
		"role": "assistant",
		"tool_calls": [{"id": "c1", "function": {
			"name": "search_code",
			"arguments": {"query": "TODO", "max_results": 5}
		}}]
	}}]}`

	result, err := Normalize([]byte(raw), openAIFieldMap("glm"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	args := result.First().Message.ToolCalls[0].Arguments
	if args["query"] != "TODO" {
		t.Errorf("arguments = %v", args)
	}
}

func TestNormalizeLegacyFunctionCall(t *testing.T) {
	raw := `{"choices": [{"message": {
		"role": "assistant",
		"function_call": {"name": "list_files", "arguments": "{\"directory\": \".\"}"}
	}}]}`

	result, err := Normalize([]byte(raw), openAIFieldMap("glm"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	calls := result.First().Message.ToolCalls
	if len(calls) != 1 || calls[0].Name != "list_files" {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].Arguments["directory"] != "." {
		t.Errorf("arguments = %v", calls[0].Arguments)
	}
}

func TestNormalizeSynthesizesCallIDs(t *testing.T) {
	raw := `{"choices": [{"message": {
		"role": "assistant",
		"tool_calls": [
			{"function": {"name": "a", "arguments": {}}},
			{"function": {"name": "b", "arguments": {}}}
		]
	}}]}`

	result, err := Normalize([]byte(raw), openAIFieldMap("ollama"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	calls := result.First().Message.ToolCalls
	if calls[0].ID != "call_0" || calls[1].ID != "call_1" {
		t.Errorf("IDs = %q, %q", calls[0].ID, calls[1].ID)
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantKey string
		wantVal any
	}{
		{"map passes through", map[string]any{"k": "v"}, "k", "v"},
		{"valid JSON string", `{"path": "x.go"}`, "path", "x.go"},
		{"repairable JSON", `{path: "x.go"}`, "path", "x.go"},
		{"single quotes repaired", `{'path': 'x.go'}`, "path", "x.go"},
		{"unparseable preserved", "read the file please", chat.RawArgumentsKey, "read the file please"},
		{"nil becomes empty", nil, "", nil},
		{"empty string becomes empty", "   ", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseArguments(tt.input)
			if tt.wantKey == "" {
				if len(got) != 0 {
					t.Errorf("ParseArguments() = %v, want empty map", got)
				}
				return
			}
			if got[tt.wantKey] != tt.wantVal {
				t.Errorf("ParseArguments()[%q] = %v, want %v", tt.wantKey, got[tt.wantKey], tt.wantVal)
			}
		})
	}
}

func TestNormalizeAnthropicShape(t *testing.T) {
	raw := `{
		"id": "msg_1",
		"model": "claude-sonnet-4-5-20250929",
		"role": "assistant",
		"content": [
			{"type": "text", "text": "checking the file"},
			{"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "go.mod"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 40, "output_tokens": 12}
	}`

	result, err := Normalize([]byte(raw), anthropicFieldMap(), "claude-sonnet-4-5-20250929")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	choice := result.First()
	if choice.Message.Content != "checking the file" {
		t.Errorf("content = %q", choice.Message.Content)
	}
	if choice.FinishReason != "tool_use" {
		t.Errorf("finish reason = %q", choice.FinishReason)
	}
	calls := choice.Message.ToolCalls
	if len(calls) != 1 || calls[0].ID != "toolu_1" || calls[0].Name != "read_file" {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0].Arguments["path"] != "go.mod" {
		t.Errorf("arguments = %v", calls[0].Arguments)
	}
	if result.Usage.PromptTokens != 40 || result.Usage.CompletionTokens != 12 || result.Usage.TotalTokens != 52 {
		t.Errorf("usage = %+v", result.Usage)
	}
}

func TestNormalizeOllamaShape(t *testing.T) {
	raw := `{
		"model": "llama3.1:latest",
		"message": {
			"role": "assistant",
			"content": "",
			"tool_calls": [{"function": {"name": "list_files", "arguments": {"directory": "."}}}]
		},
		"done": true,
		"done_reason": "stop",
		"prompt_eval_count": 30,
		"eval_count": 8
	}`

	result, err := Normalize([]byte(raw), ollamaFieldMap(), "llama3.1:latest")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	calls := result.First().Message.ToolCalls
	if len(calls) != 1 || calls[0].Name != "list_files" {
		t.Fatalf("calls = %+v", calls)
	}
	if result.Usage.PromptTokens != 30 || result.Usage.CompletionTokens != 8 {
		t.Errorf("usage = %+v", result.Usage)
	}
}

func TestNormalizeExtensionsOnlyInRaw(t *testing.T) {
	raw := `{
		"choices": [{"message": {"role": "assistant", "content": "ok", "reasoning_content": "hidden"}}],
		"web_search_results": [{"url": "https://example.com"}]
	}`

	result, err := Normalize([]byte(raw), openAIFieldMap("glm"), "m")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.First().Message.Content != "ok" {
		t.Errorf("content = %q", result.First().Message.Content)
	}
	// Extensions are reachable only through the retained payload.
	if string(result.Raw) != raw {
		t.Error("Raw payload not byte-identical to the vendor body")
	}
}
