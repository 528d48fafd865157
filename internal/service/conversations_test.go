package service

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"ragkeeper/internal/errs"
	"ragkeeper/internal/model"
	"ragkeeper/internal/repository"
)

type fakeConvs struct {
	byID map[uuid.UUID]*model.Conversation
}

var _ repository.ConversationRepository = (*fakeConvs)(nil)

func newFakeConvs() *fakeConvs { return &fakeConvs{byID: map[uuid.UUID]*model.Conversation{}} }

func (f *fakeConvs) Create(_ context.Context, c *model.Conversation) error {
	cpy := *c
	f.byID[c.ID] = &cpy
	return nil
}

func (f *fakeConvs) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConvs) GetForUser(_ context.Context, userID, id uuid.UUID) (*model.Conversation, error) {
	if c, ok := f.byID[id]; ok && c.UserID == userID {
		cpy := *c
		return &cpy, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeConvs) Rename(_ context.Context, userID, id uuid.UUID, title string) error {
	if c, ok := f.byID[id]; ok && c.UserID == userID {
		c.Title = title
		return nil
	}
	return errs.ErrNotFound
}

func (f *fakeConvs) Delete(_ context.Context, userID, id uuid.UUID) error {
	if c, ok := f.byID[id]; ok && c.UserID == userID {
		delete(f.byID, id)
		return nil
	}
	return errs.ErrNotFound
}

type fakeMsgs struct {
	byConv map[uuid.UUID][]model.Message
}

var _ repository.MessageRepository = (*fakeMsgs)(nil)

func (f *fakeMsgs) Append(_ context.Context, m *model.Message) error {
	if f.byConv == nil {
		f.byConv = map[uuid.UUID][]model.Message{}
	}
	f.byConv[m.ConversationID] = append(f.byConv[m.ConversationID], *m)
	return nil
}

func (f *fakeMsgs) ListByConversation(_ context.Context, id uuid.UUID) ([]model.Message, error) {
	return f.byConv[id], nil
}

func TestConversations_CreateDefaultsTitle(t *testing.T) {
	t.Parallel()
	svc := NewConversationService(newFakeConvs(), &fakeMsgs{})
	userID := uuid.Must(uuid.NewV4())

	c, err := svc.Create(context.Background(), userID, "   ")
	require.NoError(t, err)
	require.Equal(t, "New Chat", c.Title)

	c, err = svc.Create(context.Background(), userID, "  plans  ")
	require.NoError(t, err)
	require.Equal(t, "plans", c.Title)
}

func TestConversations_OwnerScoping(t *testing.T) {
	t.Parallel()
	convs := newFakeConvs()
	msgs := &fakeMsgs{}
	svc := NewConversationService(convs, msgs)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())

	c, err := svc.Create(ctx, owner, "mine")
	require.NoError(t, err)

	_, err = svc.Messages(ctx, stranger, c.ID)
	require.ErrorIs(t, err, errs.ErrNotFound, "foreign conversation must look missing")

	_, err = svc.Append(ctx, stranger, c.ID, MessageRoleUser, "hi")
	require.ErrorIs(t, err, errs.ErrNotFound)

	m, err := svc.Append(ctx, owner, c.ID, MessageRoleUser, "hi")
	require.NoError(t, err)
	require.Equal(t, "hi", m.Content)

	got, err := svc.Messages(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestConversations_AppendValidation(t *testing.T) {
	t.Parallel()
	convs := newFakeConvs()
	svc := NewConversationService(convs, &fakeMsgs{})
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	c, err := svc.Create(ctx, owner, "x")
	require.NoError(t, err)

	_, err = svc.Append(ctx, owner, c.ID, "system", "hi")
	require.Error(t, err)
	_, err = svc.Append(ctx, owner, c.ID, MessageRoleUser, "  ")
	require.Error(t, err)
}

func TestConversations_RenameDelete(t *testing.T) {
	t.Parallel()
	convs := newFakeConvs()
	svc := NewConversationService(convs, &fakeMsgs{})
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	c, err := svc.Create(ctx, owner, "x")
	require.NoError(t, err)

	_, err = svc.Rename(ctx, owner, c.ID, "")
	require.Error(t, err)

	got, err := svc.Rename(ctx, owner, c.ID, "renamed")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)

	require.NoError(t, svc.Delete(ctx, owner, c.ID))
	require.ErrorIs(t, svc.Delete(ctx, owner, c.ID), errs.ErrNotFound)
}
