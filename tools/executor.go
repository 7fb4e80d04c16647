// Package tools executes the tool calls a model requests. Execution
// never returns an error: every failure becomes result text the model
// can read and react to on its next turn.
package tools

import (
	"context"

	"sidekick/chat"
)

// Executor runs tool calls and advertises the tools it can run.
type Executor interface {
	// Defs lists the tool definitions to offer the model.
	Defs() []chat.ToolDef

	// Execute runs one call. The result content is either the tool's
	// output or a textual description of what went wrong.
	Execute(ctx context.Context, call chat.ToolCall) chat.ToolResult
}

// failure formats an execution problem as result text.
func failure(call chat.ToolCall, msg string) chat.ToolResult {
	return chat.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: "tool error: " + msg,
	}
}
