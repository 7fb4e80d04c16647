// Package api exposes the agent over HTTP for the editor frontend.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"sidekick/agent"
	"sidekick/chat"
	"sidekick/conversation"
)

// Server is the HTTP surface: one chat endpoint plus conversation
// management.
type Server struct {
	engine *agent.Engine
	store  conversation.Store
	echo   *echo.Echo
	log    zerolog.Logger
}

// NewServer wires routes onto a fresh echo instance.
func NewServer(engine *agent.Engine, store conversation.Store, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{engine: engine, store: store, echo: e, log: log}

	e.POST("/api/chat", s.handleChat)
	e.GET("/api/conversations", s.handleListConversations)
	e.GET("/api/conversations/:id/messages", s.handleListMessages)
	e.DELETE("/api/conversations/:id", s.handleDeleteConversation)

	return s
}

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type chatRequest struct {
	Input          string         `json:"input"`
	ConversationID string         `json:"conversation_id,omitempty"`
	FocusMessageID string         `json:"focus_message_id,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
}

type chatResponse struct {
	ConversationID   string                `json:"conversation_id"`
	State            agent.State           `json:"state"`
	UserMessage      *conversation.Message `json:"user_message"`
	AssistantMessage *conversation.Message `json:"assistant_message,omitempty"`
	Usage            chat.ChatUsage        `json:"usage"`
	ModelCalls       int                   `json:"model_calls"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind      chat.Kind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, chat.NewError(chat.KindInvalidRequest, "malformed request body"))
	}

	result, err := s.engine.RunStep(c.Request().Context(), agent.StepRequest{
		ConversationID: req.ConversationID,
		FocusMessageID: req.FocusMessageID,
		Input:          req.Input,
		Meta:           req.Meta,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(chat.KindOf(err))).Msg("chat turn failed")
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, chatResponse{
		ConversationID:   result.Conversation.ID,
		State:            result.State,
		UserMessage:      result.UserMessage,
		AssistantMessage: result.AssistantMessage,
		Usage:            result.Usage,
		ModelCalls:       result.ModelCalls,
	})
}

func (s *Server) handleListConversations(c echo.Context) error {
	conversations, err := s.store.ListConversations(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	if conversations == nil {
		conversations = []conversation.Conversation{}
	}
	return c.JSON(http.StatusOK, conversations)
}

func (s *Server) handleListMessages(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.store.GetConversation(c.Request().Context(), id); err != nil {
		return s.writeError(c, err)
	}
	messages, err := s.store.ListMessages(c.Request().Context(), id)
	if err != nil {
		return s.writeError(c, err)
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *Server) handleDeleteConversation(c echo.Context) error {
	if err := s.store.DeleteConversation(c.Request().Context(), c.Param("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) writeError(c echo.Context, err error) error {
	kind := chat.KindOf(err)
	return c.JSON(statusForKind(kind), errorResponse{Error: errorBody{
		Kind:      kind,
		Message:   err.Error(),
		Retryable: chat.Retryable(err),
	}})
}

// statusForKind maps the internal error taxonomy onto HTTP statuses.
func statusForKind(kind chat.Kind) int {
	switch kind {
	case chat.KindUnauthenticated:
		return http.StatusUnauthorized
	case chat.KindInvalidRequest:
		return http.StatusBadRequest
	case chat.KindRateLimited:
		return http.StatusTooManyRequests
	case chat.KindUnavailable:
		return http.StatusServiceUnavailable
	case chat.KindNotFound:
		return http.StatusNotFound
	case chat.KindVendor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
