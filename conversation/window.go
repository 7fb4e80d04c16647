package conversation

import "sidekick/chat"

// WindowSize caps how many historical messages accompany a model call.
// The count is message-based, not token-based.
const WindowSize = 20

// BuildWindow shapes a resolved path into the message list sent to a
// vendor: the trailing WindowSize path entries, with the system prompt
// prepended. The system prompt does not consume window slots, and the
// caller appends the fresh user turn afterwards, also uncounted.
func BuildWindow(path []Message, systemPrompt string) []chat.ChatMessage {
	start := 0
	if len(path) > WindowSize {
		start = len(path) - WindowSize
	}
	tail := path[start:]

	window := make([]chat.ChatMessage, 0, len(tail)+1)
	if systemPrompt != "" {
		window = append(window, chat.ChatMessage{Role: chat.RoleSystem, Content: systemPrompt})
	}
	for i := range tail {
		window = append(window, tail[i].ChatMessage())
	}
	return window
}
