package conversation

import (
	"context"
	"fmt"

	"sidekick/chat"
)

// ResolvePath walks parent links from leaf to the root and returns the
// chain in chronological order, root first. A broken parent link or a
// cycle is a hard failure: the engine must not call a model with a
// partial history.
func ResolvePath(ctx context.Context, store Store, leaf *Message) ([]Message, error) {
	if leaf == nil {
		return nil, nil
	}

	var reversed []Message
	seen := make(map[string]bool)

	current := leaf
	for {
		// A cycle means the stored tree is corrupt, the same class of
		// fault as a parent id that resolves to nothing.
		if seen[current.ID] {
			return nil, chat.NewError(chat.KindNotFound, "message %s appears twice on its own ancestor path", current.ID)
		}
		seen[current.ID] = true
		reversed = append(reversed, *current)

		if current.ParentID == "" {
			break
		}

		parent, err := store.GetMessage(ctx, current.ParentID)
		if err != nil {
			return nil, fmt.Errorf("resolving parent %s of message %s: %w", current.ParentID, current.ID, err)
		}
		current = parent
	}

	path := make([]Message, len(reversed))
	for i, msg := range reversed {
		path[len(reversed)-1-i] = msg
	}
	return path, nil
}

// LatestLeaf returns the most recently appended message of a
// conversation, or nil when the conversation is empty.
func LatestLeaf(ctx context.Context, store Store, conversationID string) (*Message, error) {
	msgs, err := store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	leaf := msgs[len(msgs)-1]
	return &leaf, nil
}
