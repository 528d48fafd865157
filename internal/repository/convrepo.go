package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"ragkeeper/internal/model"
)

// ConversationRepository provides owner-scoped access to chat threads. Every
// operation takes the owner's user ID; a conversation owned by someone else
// is indistinguishable from a missing one.
type ConversationRepository interface {
	Create(ctx context.Context, c *model.Conversation) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*model.Conversation, error)
	Rename(ctx context.Context, userID, id uuid.UUID, title string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// MessageRepository stores conversation history.
type MessageRepository interface {
	Append(ctx context.Context, m *model.Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error)
}
