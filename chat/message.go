// Package chat defines the vendor-neutral data model shared by the
// conversation store, the provider adapters and the agent engine.
package chat

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is a single turn in the wire format sent to a vendor.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that requested tool runs.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
// Arguments is always a map: string payloads are parsed (with a repair
// pass) by the normalizer, and unparseable strings are preserved under
// the "_raw" key so nothing the model said is lost.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// RawArgumentsKey is the map key under which the normalizer stores a
// tool-call argument string it could not parse as JSON.
const RawArgumentsKey = "_raw"

// ToolResult is the outcome of executing one ToolCall. Failures are
// reported in Content as plain text; executing a tool never errors.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}
