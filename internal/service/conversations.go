package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"ragkeeper/internal/errs"
	"ragkeeper/internal/model"
	"ragkeeper/internal/repository"
)

const defaultConversationTitle = "New Chat"

// Message roles accepted on the append path.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ConversationService manages owner-scoped chat threads and their history.
type ConversationService interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*model.Conversation, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	Rename(ctx context.Context, userID, id uuid.UUID, title string) (*model.Conversation, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Messages(ctx context.Context, userID, id uuid.UUID) ([]model.Message, error)
	Append(ctx context.Context, userID, id uuid.UUID, role, content string) (*model.Message, error)
}

type ConversationServiceImpl struct {
	convs repository.ConversationRepository
	msgs  repository.MessageRepository
}

// NewConversationService constructs ConversationService.
func NewConversationService(convs repository.ConversationRepository, msgs repository.MessageRepository) *ConversationServiceImpl {
	return &ConversationServiceImpl{convs: convs, msgs: msgs}
}

// Create starts a new conversation; a blank title gets the default.
func (s *ConversationServiceImpl) Create(ctx context.Context, userID uuid.UUID, title string) (*model.Conversation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c := &model.Conversation{ID: id, UserID: userID, Title: title}
	if err := s.convs.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the user's conversations, newest first.
func (s *ConversationServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.convs.ListByUser(ctx, userID)
}

// Rename retitles an owned conversation.
func (s *ConversationServiceImpl) Rename(ctx context.Context, userID, id uuid.UUID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", errs.ErrValidation)
	}
	if err := s.convs.Rename(ctx, userID, id, title); err != nil {
		return nil, err
	}
	return s.convs.GetForUser(ctx, userID, id)
}

// Delete removes an owned conversation and its messages.
func (s *ConversationServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.convs.Delete(ctx, userID, id)
}

// Messages returns the history of an owned conversation in order.
func (s *ConversationServiceImpl) Messages(ctx context.Context, userID, id uuid.UUID) ([]model.Message, error) {
	if _, err := s.convs.GetForUser(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.msgs.ListByConversation(ctx, id)
}

// Append stores a message at the tail of an owned conversation.
func (s *ConversationServiceImpl) Append(ctx context.Context, userID, id uuid.UUID, role, content string) (*model.Message, error) {
	if role != MessageRoleUser && role != MessageRoleAssistant {
		return nil, fmt.Errorf("%w: bad message role", errs.ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", errs.ErrValidation)
	}
	if _, err := s.convs.GetForUser(ctx, userID, id); err != nil {
		return nil, err
	}
	mid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &model.Message{ID: mid, ConversationID: id, Role: role, Content: content}
	if err := s.msgs.Append(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
