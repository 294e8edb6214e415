package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/pkg/log"
)

// Append adds msg to the end of the transcript and bumps updated_at in the same
// transaction. It reports false when the conversation does not exist.
func (r *ConversationsRepo) Append(ctx context.Context, conversationID string, msg core.Message) (bool, error) {
	if !msg.Role.Valid() {
		return false, fmt.Errorf("invalid message role %q", msg.Role)
	}

	meta, err := marshalMetadata(msg.Metadata)
	if err != nil {
		return false, err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	updated, err := r.bumpUpdatedAt(ctx, tx, conversationID)
	if errors.Is(err, core.ErrConversationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if msg.Timestamp.After(updated) {
		updated = msg.Timestamp
	}

	query := `INSERT INTO messages (conversation_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, conversationID, string(msg.Role), msg.Content, meta, toUnix(msg.Timestamp)); err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, toUnix(updated), conversationID); err != nil {
		return false, fmt.Errorf("failed to bump conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit message: %w", err)
	}
	return true, nil
}

// RecentMessages returns the last limit messages in chronological order.
func (r *ConversationsRepo) RecentMessages(ctx context.Context, conversationID string, limit int) ([]core.Message, error) {
	// A negative LIMIT means "no limit" to SQLite
	if limit <= 0 {
		return []core.Message{}, nil
	}

	// Fetch the LAST 'limit' messages by ordering DESC
	query := `SELECT role, content, metadata, created_at FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?`

	messages, err := r.queryMessages(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}

	// Newest -> Oldest back to Oldest -> Newest for the prompt
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(messages)).Msg("loaded history messages")
	return messages, nil
}

func (r *ConversationsRepo) allMessages(ctx context.Context, conversationID string) ([]core.Message, error) {
	query := `SELECT role, content, metadata, created_at FROM messages WHERE conversation_id = ? ORDER BY id ASC`
	return r.queryMessages(ctx, query, conversationID)
}

func (r *ConversationsRepo) queryMessages(ctx context.Context, query string, args ...any) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []core.Message{}
	for rows.Next() {
		var (
			msg       core.Message
			role      string
			meta      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&role, &msg.Content, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Role = core.Role(role)
		msg.Timestamp = fromUnix(createdAt)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func marshalMetadata(meta map[string]string) (string, error) {
	// Empty metadata is stored as an empty string to save space
	if len(meta) == 0 {
		return "", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}
