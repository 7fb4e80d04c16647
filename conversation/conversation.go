// Package conversation holds the persisted conversation tree and the
// logic that turns a tree position into a model context window.
package conversation

import (
	"context"
	"time"

	"sidekick/chat"
)

// Conversation groups a tree of messages under one thread.
type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	AgentType string         `json:"agent_type"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Message is one node of a conversation tree. ParentID is empty only
// for the root; Depth is the distance from the root. Version numbers
// siblings that share a parent, so edits fork branches instead of
// overwriting history.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           chat.Role      `json:"role"`
	Content        string         `json:"content"`
	ParentID       string         `json:"parent_id,omitempty"`
	Depth          int            `json:"depth"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// ChatMessage converts the stored record to its wire form. Tool-call
// linkage is restored from meta on both sides of a tool exchange:
// assistant records get their tool_calls back and tool records their
// originating call id, so a replayed window keeps the pairing vendors
// require.
func (m *Message) ChatMessage() chat.ChatMessage {
	cm := chat.ChatMessage{Role: m.Role, Content: m.Content}
	switch m.Role {
	case chat.RoleAssistant:
		cm.ToolCalls = toolCallsFromMeta(m.Meta)
	case chat.RoleTool:
		if id, ok := m.Meta["tool_call_id"].(string); ok {
			cm.ToolCallID = id
		}
	}
	return cm
}

// toolCallsFromMeta rebuilds the tool-call list an assistant record
// persisted under meta["tool_calls"]. Meta round-trips through JSON,
// so entries arrive as generic maps.
func toolCallsFromMeta(meta map[string]any) []chat.ToolCall {
	raw, ok := meta["tool_calls"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	calls := make([]chat.ToolCall, 0, len(raw))
	for _, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		var call chat.ToolCall
		if id, ok := fields["id"].(string); ok {
			call.ID = id
		}
		if name, ok := fields["name"].(string); ok {
			call.Name = name
		}
		if args, ok := fields["arguments"].(map[string]any); ok {
			call.Arguments = args
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return nil
	}
	return calls
}

// Store is the persistence contract for conversation trees. Appends
// are atomic: a message is either fully recorded or absent.
type Store interface {
	CreateConversation(ctx context.Context, agentType, title string, meta map[string]any) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// AppendMessage persists msg and bumps the parent conversation's
	// updated_at. The caller fills ID, Depth and Version.
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListMessages returns every message of a conversation ordered by
	// creation time.
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}
