package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"sidekick/agent"
	"sidekick/chat"
	"sidekick/provider/testutil"
	"sidekick/storage"
)

func newTestServer(t *testing.T, p *testutil.MockProvider) (*Server, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := agent.New(store, p, nil, agent.Config{}, zerolog.Nop())
	return NewServer(engine, store, zerolog.Nop()), store
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	p := &testutil.MockProvider{Steps: []testutil.Step{
		{Result: testutil.TextResult("glm", "hello from the model")},
	}}
	server, _ := newTestServer(t, p)

	rec := doJSON(t, server, http.MethodPost, "/api/chat", `{"input": "hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.State != agent.StateDone {
		t.Errorf("state = %q", resp.State)
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id missing")
	}
	if resp.AssistantMessage == nil || resp.AssistantMessage.Content != "hello from the model" {
		t.Errorf("assistant = %+v", resp.AssistantMessage)
	}
	if resp.ModelCalls != 1 {
		t.Errorf("model_calls = %d", resp.ModelCalls)
	}
}

func TestChatEndpointContinuesConversation(t *testing.T) {
	p := &testutil.MockProvider{Steps: []testutil.Step{
		{Result: testutil.TextResult("glm", "first")},
		{Result: testutil.TextResult("glm", "second")},
	}}
	server, _ := newTestServer(t, p)

	rec := doJSON(t, server, http.MethodPost, "/api/chat", `{"input": "one"}`)
	var first chatResponse
	json.Unmarshal(rec.Body.Bytes(), &first)

	rec = doJSON(t, server, http.MethodPost, "/api/chat",
		`{"input": "two", "conversation_id": "`+first.ConversationID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var second chatResponse
	json.Unmarshal(rec.Body.Bytes(), &second)
	if second.ConversationID != first.ConversationID {
		t.Error("conversation not continued")
	}

	// Second call saw the first exchange in its window.
	msgs := p.Requests[1].Messages
	var contents []string
	for _, m := range msgs {
		contents = append(contents, m.Content)
	}
	joined := strings.Join(contents, "|")
	if !strings.Contains(joined, "one") || !strings.Contains(joined, "first") {
		t.Errorf("window = %v", contents)
	}
}

func TestChatEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *chat.Error
		wantStatus int
		retryable  bool
	}{
		{"unauthenticated", &chat.Error{Kind: chat.KindUnauthenticated, Message: "bad key"}, http.StatusUnauthorized, false},
		{"rate limited", &chat.Error{Kind: chat.KindRateLimited, Message: "slow"}, http.StatusTooManyRequests, true},
		{"unavailable", &chat.Error{Kind: chat.KindUnavailable, Message: "down"}, http.StatusServiceUnavailable, true},
		{"vendor", &chat.Error{Kind: chat.KindVendor, Message: "weird"}, http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &testutil.MockProvider{Steps: []testutil.Step{{Err: tt.err}}}
			server, _ := newTestServer(t, p)

			rec := doJSON(t, server, http.MethodPost, "/api/chat", `{"input": "hi"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if resp.Error.Kind != tt.err.Kind {
				t.Errorf("kind = %q, want %q", resp.Error.Kind, tt.err.Kind)
			}
			if resp.Error.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", resp.Error.Retryable, tt.retryable)
			}
		})
	}
}

func TestChatEndpointEmptyInput(t *testing.T) {
	server, _ := newTestServer(t, &testutil.MockProvider{})
	rec := doJSON(t, server, http.MethodPost, "/api/chat", `{"input": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConversationEndpoints(t *testing.T) {
	p := &testutil.MockProvider{Steps: []testutil.Step{
		{Result: testutil.TextResult("glm", "answer")},
	}}
	server, _ := newTestServer(t, p)

	rec := doJSON(t, server, http.MethodPost, "/api/chat", `{"input": "hello"}`)
	var created chatResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	t.Run("list conversations", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/conversations", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var list []map[string]any
		json.Unmarshal(rec.Body.Bytes(), &list)
		if len(list) != 1 {
			t.Errorf("conversations = %d, want 1", len(list))
		}
	})

	t.Run("list messages", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/conversations/"+created.ConversationID+"/messages", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var msgs []map[string]any
		json.Unmarshal(rec.Body.Bytes(), &msgs)
		if len(msgs) != 2 {
			t.Errorf("messages = %d, want 2", len(msgs))
		}
	})

	t.Run("messages of unknown conversation", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/conversations/nope/messages", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodDelete, "/api/conversations/"+created.ConversationID, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		rec = doJSON(t, server, http.MethodDelete, "/api/conversations/"+created.ConversationID, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", rec.Code)
		}
	})
}
