package chat

// ToolChoice constrains whether the model may call tools on a turn.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceRequired ToolChoice = "required"
)

// ToolParam describes one parameter of a tool in JSON Schema terms.
type ToolParam struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`

	// Schema carries extra JSON Schema keywords (enum, items, ...)
	// merged into the property object as-is.
	Schema map[string]any `json:"schema,omitempty"`
}

// ToolDef declares a tool the model may call.
type ToolDef struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Params      map[string]ToolParam `json:"params"`
}

// ChatRequest is a vendor-neutral completion request. Model is a
// logical name; each adapter resolves it to a concrete vendor model.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []ToolDef     `json:"tools,omitempty"`
	ToolChoice  ToolChoice    `json:"tool_choice,omitempty"`
}
