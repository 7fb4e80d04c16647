package chat

import "encoding/json"

// ChatUsage is token accounting for one completion. Fields a vendor
// omits are zero, never negative.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add folds another usage report into u.
func (u *ChatUsage) Add(other ChatUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ChatChoice is one candidate completion. FinishReason is the vendor's
// own string ("stop", "tool_calls", "end_turn", ...), empty when the
// vendor sent none.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResult is the single internal shape every vendor response is
// normalized into. Vendor-specific extensions survive only in Raw.
type ChatResult struct {
	Vendor  string          `json:"vendor"`
	Model   string          `json:"model"`
	Choices []ChatChoice    `json:"choices"`
	Usage   ChatUsage       `json:"usage"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// First returns the first choice, or a zero choice when the vendor
// returned none.
func (r *ChatResult) First() ChatChoice {
	if len(r.Choices) == 0 {
		return ChatChoice{Message: ChatMessage{Role: RoleAssistant}}
	}
	return r.Choices[0]
}
