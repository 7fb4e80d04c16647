// Package agent drives one conversation turn: resolve the tree path,
// build the context window, call the model, execute requested tools
// and loop until the model answers in plain text or the call ceiling
// is reached.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"sidekick/chat"
	"sidekick/conversation"
	"sidekick/logging"
	"sidekick/prompts"
	"sidekick/provider"
	"sidekick/tools"
)

// State is where a turn currently stands. Transitions:
// Deciding -> Executing -> Deciding ... -> Done, or Deciding ->
// Aborted on a model-call failure.
type State string

const (
	StateDeciding  State = "deciding"
	StateExecuting State = "executing"
	StateDone      State = "done"
	StateAborted   State = "aborted"
)

// DefaultMaxModelCalls caps model calls per turn. Reaching the cap
// forces Done with whatever content the last call produced; no
// further model call is made.
const DefaultMaxModelCalls = 5

// Config tunes one engine instance.
type Config struct {
	AgentType     string
	Model         string
	MaxModelCalls int
	EnableTools   bool
	Temperature   *float64
	PromptDir     string
}

// Engine wires the store, one provider and a tool executor into the
// turn loop.
type Engine struct {
	store    conversation.Store
	provider provider.Provider
	executor tools.Executor
	cfg      Config
	log      zerolog.Logger
}

// New creates an engine. executor may be nil, which disables tools
// regardless of cfg.EnableTools.
func New(store conversation.Store, p provider.Provider, executor tools.Executor, cfg Config, log zerolog.Logger) *Engine {
	if cfg.MaxModelCalls <= 0 {
		cfg.MaxModelCalls = DefaultMaxModelCalls
	}
	if cfg.Model == "" {
		cfg.Model = provider.LogicalChatModel
	}
	if cfg.AgentType == "" {
		cfg.AgentType = prompts.AgentTypeIDEHelper
	}
	return &Engine{store: store, provider: p, executor: executor, cfg: cfg, log: log}
}

// StepRequest is one user turn.
type StepRequest struct {
	// ConversationID continues an existing conversation; empty starts
	// a new one.
	ConversationID string
	// FocusMessageID anchors the turn at a specific tree node to fork
	// a branch; empty continues from the latest leaf.
	FocusMessageID string
	Input          string
	Meta           map[string]any
}

// StepResult reports a finished (or aborted) turn.
type StepResult struct {
	State            State                     `json:"state"`
	Conversation     *conversation.Conversation `json:"conversation"`
	UserMessage      *conversation.Message      `json:"user_message"`
	AssistantMessage *conversation.Message      `json:"assistant_message"`
	Usage            chat.ChatUsage             `json:"usage"`
	ModelCalls       int                        `json:"model_calls"`
}

// RunStep executes one turn. On a model-call failure the turn aborts:
// the already-persisted user message stays, no partial assistant
// message is written, and the error is returned alongside a result
// carrying the Aborted state. Tool failures never abort; they are fed
// back to the model as result text.
func (e *Engine) RunStep(ctx context.Context, req StepRequest) (*StepResult, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, chat.NewError(chat.KindInvalidRequest, "input must not be empty")
	}

	conv, err := e.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	leaf, err := e.resolveLeaf(ctx, conv, req)
	if err != nil {
		return nil, err
	}

	path, err := conversation.ResolvePath(ctx, e.store, leaf)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation path: %w", err)
	}

	systemPrompt, err := prompts.LoadSystemPrompt(conv.AgentType, e.cfg.PromptDir)
	if err != nil {
		return nil, chat.NewError(chat.KindInvalidRequest, "no system prompt: %v", err)
	}

	messages := conversation.BuildWindow(path, systemPrompt)

	userMsg := &conversation.Message{
		ConversationID: conv.ID,
		Role:           chat.RoleUser,
		Content:        req.Input,
		Meta:           req.Meta,
	}
	if leaf != nil {
		userMsg.ParentID = leaf.ID
		userMsg.Depth = leaf.Depth + 1
	}
	if err := e.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}
	messages = append(messages, chat.ChatMessage{Role: chat.RoleUser, Content: req.Input})

	e.log.Info().
		Str("conversation", conv.ID).
		Str("vendor", e.provider.Name()).
		Str("input", logging.Content(req.Input)).
		Msg("turn started")

	result := &StepResult{
		State:        StateDeciding,
		Conversation: conv,
		UserMessage:  userMsg,
	}
	parent := userMsg

	for {
		result.ModelCalls++
		chatResult, err := e.provider.Chat(ctx, e.chatRequest(messages))
		if err != nil {
			result.State = StateAborted
			e.log.Error().
				Str("conversation", conv.ID).
				Int("model_calls", result.ModelCalls).
				Err(err).
				Msg("turn aborted")
			return result, fmt.Errorf("model call %d failed: %w", result.ModelCalls, err)
		}
		result.Usage.Add(chatResult.Usage)

		choice := chatResult.First()
		assistant := choice.Message
		pending := assistant.ToolCalls

		assistantMsg := &conversation.Message{
			ConversationID: conv.ID,
			Role:           chat.RoleAssistant,
			Content:        assistant.Content,
			ParentID:       parent.ID,
			Depth:          parent.Depth + 1,
			Meta:           assistantMeta(chatResult, choice, result.ModelCalls),
		}
		if err := e.store.AppendMessage(ctx, assistantMsg); err != nil {
			result.State = StateAborted
			return result, fmt.Errorf("failed to persist assistant message: %w", err)
		}
		result.AssistantMessage = assistantMsg
		parent = assistantMsg

		e.log.Debug().
			Str("conversation", conv.ID).
			Int("model_calls", result.ModelCalls).
			Int("tool_calls", len(pending)).
			Str("finish_reason", choice.FinishReason).
			Str("content", logging.Content(assistant.Content)).
			Msg("model call finished")

		toolsEnabled := e.cfg.EnableTools && e.executor != nil
		if len(pending) == 0 || !toolsEnabled || result.ModelCalls >= e.cfg.MaxModelCalls {
			// Ceiling hit with pending calls: finish with the content
			// we have instead of spending another model call.
			result.State = StateDone
			e.log.Info().
				Str("conversation", conv.ID).
				Int("model_calls", result.ModelCalls).
				Str("state", string(StateDone)).
				Msg("turn finished")
			return result, nil
		}

		result.State = StateExecuting
		messages = append(messages, assistant)

		for _, call := range pending {
			toolResult := e.executor.Execute(ctx, call)

			toolMsg := &conversation.Message{
				ConversationID: conv.ID,
				Role:           chat.RoleTool,
				Content:        toolResult.Content,
				ParentID:       parent.ID,
				Depth:          parent.Depth + 1,
				Meta: map[string]any{
					"tool_call_id": call.ID,
					"tool_name":    call.Name,
				},
			}
			if err := e.store.AppendMessage(ctx, toolMsg); err != nil {
				result.State = StateAborted
				return result, fmt.Errorf("failed to persist tool result: %w", err)
			}
			parent = toolMsg

			messages = append(messages, chat.ChatMessage{
				Role:       chat.RoleTool,
				Content:    toolResult.Content,
				ToolCallID: call.ID,
			})

			e.log.Debug().
				Str("conversation", conv.ID).
				Str("tool", call.Name).
				Str("call_id", call.ID).
				Int("result_bytes", len(toolResult.Content)).
				Msg("tool executed")
		}

		result.State = StateDeciding
	}
}

func (e *Engine) resolveConversation(ctx context.Context, req StepRequest) (*conversation.Conversation, error) {
	if req.ConversationID != "" {
		return e.store.GetConversation(ctx, req.ConversationID)
	}
	return e.store.CreateConversation(ctx, e.cfg.AgentType, titleFromInput(req.Input), nil)
}

func (e *Engine) resolveLeaf(ctx context.Context, conv *conversation.Conversation, req StepRequest) (*conversation.Message, error) {
	if req.FocusMessageID == "" {
		return conversation.LatestLeaf(ctx, e.store, conv.ID)
	}
	focus, err := e.store.GetMessage(ctx, req.FocusMessageID)
	if err != nil {
		return nil, err
	}
	if focus.ConversationID != conv.ID {
		return nil, chat.NewError(chat.KindInvalidRequest,
			"message %s does not belong to conversation %s", req.FocusMessageID, conv.ID)
	}
	return focus, nil
}

func (e *Engine) chatRequest(messages []chat.ChatMessage) chat.ChatRequest {
	req := chat.ChatRequest{
		Model:       e.cfg.Model,
		Messages:    messages,
		Temperature: e.cfg.Temperature,
	}
	if e.cfg.EnableTools && e.executor != nil {
		req.Tools = e.executor.Defs()
		req.ToolChoice = chat.ToolChoiceAuto
	}
	return req
}

func assistantMeta(result *chat.ChatResult, choice chat.ChatChoice, modelCall int) map[string]any {
	meta := map[string]any{
		"vendor":     result.Vendor,
		"model":      result.Model,
		"model_call": modelCall,
		"usage": map[string]any{
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
			"total_tokens":      result.Usage.TotalTokens,
		},
	}
	if choice.FinishReason != "" {
		meta["finish_reason"] = choice.FinishReason
	}
	if len(choice.Message.ToolCalls) > 0 {
		calls := make([]any, 0, len(choice.Message.ToolCalls))
		for _, call := range choice.Message.ToolCalls {
			calls = append(calls, map[string]any{
				"id":        call.ID,
				"name":      call.Name,
				"arguments": call.Arguments,
			})
		}
		meta["tool_calls"] = calls
	}
	return meta
}

// titleFromInput derives a conversation title from the first user
// message.
func titleFromInput(input string) string {
	title := strings.TrimSpace(input)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	runes := []rune(title)
	if len(runes) > 60 {
		title = string(runes[:60]) + "…"
	}
	return title
}
