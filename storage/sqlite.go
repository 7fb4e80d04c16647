// Package storage persists conversation trees in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sidekick/chat"
	"sidekick/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	agent_type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	meta TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	parent_id TEXT,
	depth INTEGER NOT NULL DEFAULT 0,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	meta TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id);
`

// SQLiteStore implements conversation.Store on a local SQLite file.
// modernc.org/sqlite keeps the binary cgo-free.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open creates or opens the conversation database at path and applies
// the schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation database: %w", err)
	}

	// SQLite allows exactly one writer; serialize through one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize conversation schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenInDir opens conversations.db inside dir.
func OpenInDir(dir string) (*SQLiteStore, error) {
	return Open(filepath.Join(dir, "conversations.db"))
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, agentType, title string, meta map[string]any) (*conversation.Conversation, error) {
	now := time.Now().UTC()
	conv := &conversation.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		AgentType: agentType,
		CreatedAt: now,
		UpdatedAt: now,
		Meta:      meta,
	}

	metaJSON, err := encodeMeta(meta)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, agent_type, created_at, updated_at, meta) VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.AgentType, formatTime(now), formatTime(now), metaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, agent_type, created_at, updated_at, meta FROM conversations WHERE id = ?`, id)

	var conv conversation.Conversation
	var createdAt, updatedAt, metaJSON string
	err := row.Scan(&conv.ID, &conv.Title, &conv.AgentType, &createdAt, &updatedAt, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chat.NewError(chat.KindNotFound, "conversation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)
	conv.Meta = decodeMeta(metaJSON)
	return &conv, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context) ([]conversation.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, agent_type, created_at, updated_at, meta FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []conversation.Conversation
	for rows.Next() {
		var conv conversation.Conversation
		var createdAt, updatedAt, metaJSON string
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.AgentType, &createdAt, &updatedAt, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conv.CreatedAt = parseTime(createdAt)
		conv.UpdatedAt = parseTime(updatedAt)
		conv.Meta = decodeMeta(metaJSON)
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return chat.NewError(chat.KindNotFound, "conversation %s not found", id)
	}
	return tx.Commit()
}

// AppendMessage inserts msg and bumps the conversation's updated_at in
// one transaction. A zero Version is assigned from the current sibling
// count under the same parent.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *conversation.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	metaJSON, err := encodeMeta(msg.Meta)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	if msg.Version == 0 {
		var maxVersion sql.NullInt64
		row := tx.QueryRowContext(ctx,
			`SELECT MAX(version) FROM messages WHERE conversation_id = ? AND coalesce(parent_id, '') = ?`,
			msg.ConversationID, msg.ParentID)
		if err := row.Scan(&maxVersion); err != nil {
			return fmt.Errorf("failed to compute message version: %w", err)
		}
		msg.Version = int(maxVersion.Int64) + 1
	}

	var parent any
	if msg.ParentID != "" {
		parent = msg.ParentID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, parent_id, depth, version, created_at, meta)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, parent,
		msg.Depth, msg.Version, formatTime(msg.CreatedAt), metaJSON)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation %s: %w", msg.ConversationID, err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*conversation.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, coalesce(parent_id, ''), depth, version, created_at, meta
		 FROM messages WHERE id = ?`, id)

	msg, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chat.NewError(chat.KindNotFound, "message %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message %s: %w", id, err)
	}
	return msg, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, coalesce(parent_id, ''), depth, version, created_at, meta
		 FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of %s: %w", conversationID, err)
	}
	defer rows.Close()

	var out []conversation.Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		out = append(out, *msg)
	}
	return out, rows.Err()
}

func scanMessage(scan func(dest ...any) error) (*conversation.Message, error) {
	var msg conversation.Message
	var role, createdAt, metaJSON string
	err := scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.ParentID,
		&msg.Depth, &msg.Version, &createdAt, &metaJSON)
	if err != nil {
		return nil, err
	}
	msg.Role = chat.Role(role)
	msg.CreatedAt = parseTime(createdAt)
	msg.Meta = decodeMeta(metaJSON)
	return &msg, nil
}

func encodeMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode meta: %w", err)
	}
	return string(data), nil
}

func decodeMeta(raw string) map[string]any {
	if raw == "" || raw == "{}" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil
	}
	return meta
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
