package storage

import (
	"context"
	"path/filepath"
	"testing"

	"sidekick/chat"
	"sidekick/conversation"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConversationLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "ide-helper", "first", map[string]any{"source": "test"})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("conversation ID not assigned")
	}

	got, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.AgentType != "ide-helper" || got.Title != "first" {
		t.Errorf("loaded conversation = %+v", got)
	}
	if got.Meta["source"] != "test" {
		t.Errorf("meta = %v, want source=test", got.Meta)
	}

	list, err := store.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListConversations = %d entries, want 1", len(list))
	}

	if err := store.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, err := store.GetConversation(ctx, conv.ID); !chat.IsNotFound(err) {
		t.Errorf("GetConversation after delete: err = %v, want not_found", err)
	}
}

func TestGetConversationMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetConversation(context.Background(), "nope")
	if !chat.IsNotFound(err) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestAppendAndListMessages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "ide-helper", "", nil)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	user := &conversation.Message{
		ConversationID: conv.ID,
		Role:           chat.RoleUser,
		Content:        "hello",
	}
	if err := store.AppendMessage(ctx, user); err != nil {
		t.Fatalf("AppendMessage(user): %v", err)
	}
	if user.ID == "" || user.Version != 1 {
		t.Errorf("user record = %+v, want assigned ID and version 1", user)
	}

	asst := &conversation.Message{
		ConversationID: conv.ID,
		Role:           chat.RoleAssistant,
		Content:        "hi",
		ParentID:       user.ID,
		Depth:          1,
		Meta:           map[string]any{"vendor": "glm"},
	}
	if err := store.AppendMessage(ctx, asst); err != nil {
		t.Fatalf("AppendMessage(assistant): %v", err)
	}

	msgs, err := store.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("ListMessages = %d entries, want 2", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[1].Role != chat.RoleAssistant {
		t.Errorf("message order = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].ParentID != user.ID {
		t.Errorf("assistant parent = %q, want %q", msgs[1].ParentID, user.ID)
	}
	if msgs[1].Meta["vendor"] != "glm" {
		t.Errorf("assistant meta = %v", msgs[1].Meta)
	}
}

func TestSiblingVersions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conv, _ := store.CreateConversation(ctx, "ide-helper", "", nil)
	root := &conversation.Message{ConversationID: conv.ID, Role: chat.RoleUser, Content: "q"}
	if err := store.AppendMessage(ctx, root); err != nil {
		t.Fatalf("AppendMessage(root): %v", err)
	}

	for want := 1; want <= 3; want++ {
		sibling := &conversation.Message{
			ConversationID: conv.ID,
			Role:           chat.RoleAssistant,
			Content:        "a",
			ParentID:       root.ID,
			Depth:          1,
		}
		if err := store.AppendMessage(ctx, sibling); err != nil {
			t.Fatalf("AppendMessage(sibling %d): %v", want, err)
		}
		if sibling.Version != want {
			t.Errorf("sibling version = %d, want %d", sibling.Version, want)
		}
	}
}

func TestGetMessageMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetMessage(context.Background(), "nope")
	if !chat.IsNotFound(err) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestStoreRoundTripsThroughResolver(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conv, _ := store.CreateConversation(ctx, "ide-helper", "", nil)
	var parent string
	var leaf *conversation.Message
	for i := 0; i < 4; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		msg := &conversation.Message{
			ConversationID: conv.ID,
			Role:           role,
			Content:        "turn",
			ParentID:       parent,
			Depth:          i,
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%d): %v", i, err)
		}
		parent = msg.ID
		leaf = msg
	}

	path, err := conversation.ResolvePath(ctx, store, leaf)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if len(path) != 4 {
		t.Fatalf("path length = %d, want 4", len(path))
	}
	for i, msg := range path {
		if msg.Depth != i {
			t.Errorf("path[%d].Depth = %d, want %d", i, msg.Depth, i)
		}
	}
}
