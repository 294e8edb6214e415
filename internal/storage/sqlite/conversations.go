package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/pkg/log"
)

const previewLength = 100

// ConversationsRepo stores conversations and their append-only transcripts.
type ConversationsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewConversationsRepo(db *sql.DB) *ConversationsRepo {
	return &ConversationsRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ core.ConversationRepository = (*ConversationsRepo)(nil)

func (r *ConversationsRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ConversationsRepo) Create(ctx context.Context, title *string) (*core.Conversation, error) {
	now := r.now()
	conv := &core.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []core.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, conv.ID, nullString(title), toUnix(now), toUnix(now))
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}

	log.FromCtx(ctx).Debug().Str("conversation_id", conv.ID).Msg("conversation created")
	return conv, nil
}

func (r *ConversationsRepo) Exists(ctx context.Context, conversationID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check conversation: %w", err)
	}
	return true, nil
}

func (r *ConversationsRepo) Get(ctx context.Context, conversationID string) (*core.Conversation, error) {
	conv, err := r.getHeader(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	conv.Messages, err = r.allMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationsRepo) getHeader(ctx context.Context, conversationID string) (*core.Conversation, error) {
	query := `SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`

	var (
		conv               core.Conversation
		title              sql.NullString
		createdAt, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&conv.ID, &title, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	conv.Title = fromNullString(title)
	conv.CreatedAt = fromUnix(createdAt)
	conv.UpdatedAt = fromUnix(updated)
	return &conv, nil
}

// List returns summaries, most recently updated first.
func (r *ConversationsRepo) List(ctx context.Context, skip, limit int) ([]core.ConversationSummary, error) {
	query := `
		SELECT c.id, c.title, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       (SELECT m.content FROM messages m WHERE m.conversation_id = c.id ORDER BY m.id DESC LIMIT 1)
		FROM conversations c
		ORDER BY c.updated_at DESC, c.id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	summaries := []core.ConversationSummary{}
	for rows.Next() {
		var (
			s                  core.ConversationSummary
			title, last        sql.NullString
			createdAt, updated int64
		)
		if err := rows.Scan(&s.ID, &title, &createdAt, &updated, &s.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		s.Title = fromNullString(title)
		s.CreatedAt = fromUnix(createdAt)
		s.UpdatedAt = fromUnix(updated)
		if last.Valid && last.String != "" {
			preview := truncateRunes(last.String, previewLength)
			s.LastMessagePreview = &preview
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// ListFull is List with every transcript attached.
func (r *ConversationsRepo) ListFull(ctx context.Context, skip, limit int) ([]core.Conversation, error) {
	summaries, err := r.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	convs := make([]core.Conversation, 0, len(summaries))
	for _, s := range summaries {
		msgs, err := r.allMessages(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		convs = append(convs, core.Conversation{
			ID:        s.ID,
			Title:     s.Title,
			Messages:  msgs,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return convs, nil
}

func (r *ConversationsRepo) UpdateTitle(ctx context.Context, conversationID, title string) (*core.Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	updated, err := r.bumpUpdatedAt(ctx, tx, conversationID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, toUnix(updated), conversationID); err != nil {
		return nil, fmt.Errorf("failed to update title: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit title update: %w", err)
	}

	return r.Get(ctx, conversationID)
}

func (r *ConversationsRepo) Delete(ctx context.Context, conversationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// bumpUpdatedAt returns the next updated_at for the row, never earlier than
// the stored one.
func (r *ConversationsRepo) bumpUpdatedAt(ctx context.Context, tx *sql.Tx, conversationID string) (time.Time, error) {
	var prev int64
	err := tx.QueryRowContext(ctx, `SELECT updated_at FROM conversations WHERE id = ?`, conversationID).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, core.ErrConversationNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read updated_at: %w", err)
	}

	now := r.now()
	if toUnix(now) < prev {
		return fromUnix(prev), nil
	}
	return now, nil
}

func toUnix(t time.Time) int64 {
	return t.UnixMicro()
}

func fromUnix(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
