package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"ragkeeper/internal/errs"
	"ragkeeper/internal/model"
)

// ConversationRepo implements repository.ConversationRepository.
type ConversationRepo struct{ db *DB }

// NewConversationRepo constructs a conversation repository.
func NewConversationRepo(db *DB) *ConversationRepo { return &ConversationRepo{db: db} }

// Create inserts a new conversation row.
func (r *ConversationRepo) Create(ctx context.Context, c *model.Conversation) error {
	const q = `INSERT INTO conversations (id, user_id, title) VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.UserID, c.Title)
	return err
}

// ListByUser returns the user's conversations, newest first.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	const q = `
SELECT id, user_id, title, created_at
FROM conversations WHERE user_id=$1
ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err = rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetForUser returns a conversation only if the user owns it.
func (r *ConversationRepo) GetForUser(ctx context.Context, userID, id uuid.UUID) (*model.Conversation, error) {
	const q = `
SELECT id, user_id, title, created_at
FROM conversations WHERE id=$1 AND user_id=$2`
	var c model.Conversation
	err := r.db.Pool.QueryRow(ctx, q, id, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Rename updates the title of an owned conversation.
func (r *ConversationRepo) Rename(ctx context.Context, userID, id uuid.UUID, title string) error {
	const q = `UPDATE conversations SET title=$3 WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes an owned conversation; messages cascade in the schema.
func (r *ConversationRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM conversations WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MessageRepo implements repository.MessageRepository.
type MessageRepo struct{ db *DB }

// NewMessageRepo constructs a message repository.
func NewMessageRepo(db *DB) *MessageRepo { return &MessageRepo{db: db} }

// Append inserts a message at the tail of a conversation.
func (r *MessageRepo) Append(ctx context.Context, m *model.Message) error {
	const q = `INSERT INTO messages (id, conversation_id, role, content) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, m.ID, m.ConversationID, m.Role, m.Content)
	return err
}

// ListByConversation returns messages in chronological order.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	const q = `
SELECT id, conversation_id, role, content, created_at
FROM messages WHERE conversation_id=$1
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err = rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
