package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"

	"ragkeeper/internal/errs"
	"ragkeeper/internal/model"
	"ragkeeper/internal/service"
)

// fakeAuth implements service.AuthService with canned responses per method.
type fakeAuth struct {
	registerTokens model.Tokens
	registerUser   model.User
	registerErr    error

	loginTokens model.Tokens
	loginUser   model.User
	loginErr    error
	gotLoginIP  string

	refreshTokens model.Tokens
	refreshUser   model.User
	refreshErr    error

	logoutErr  error
	loggedOut  []uuid.UUID
	principals map[string]model.Principal
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, _ service.RegisterInput) (model.Tokens, model.User, error) {
	return f.registerTokens, f.registerUser, f.registerErr
}

func (f *fakeAuth) LoginWithIP(_ context.Context, _, _, ip string) (model.Tokens, model.User, error) {
	f.gotLoginIP = ip
	return f.loginTokens, f.loginUser, f.loginErr
}

func (f *fakeAuth) Refresh(_ context.Context, _ string) (model.Tokens, model.User, error) {
	return f.refreshTokens, f.refreshUser, f.refreshErr
}

func (f *fakeAuth) Logout(_ context.Context, userID uuid.UUID) error {
	f.loggedOut = append(f.loggedOut, userID)
	return f.logoutErr
}

func (f *fakeAuth) Authenticate(tok string) (model.Principal, error) {
	if p, ok := f.principals[tok]; ok {
		return p, nil
	}
	return model.Principal{}, fmt.Errorf("%w: bad token", errs.ErrUnauthorized)
}

// fakeConvService is an in-memory service.ConversationService.
type fakeConvService struct {
	convs map[uuid.UUID]*model.Conversation
	msgs  map[uuid.UUID][]model.Message
}

var _ service.ConversationService = (*fakeConvService)(nil)

func newFakeConvService() *fakeConvService {
	return &fakeConvService{
		convs: map[uuid.UUID]*model.Conversation{},
		msgs:  map[uuid.UUID][]model.Message{},
	}
}

func (f *fakeConvService) Create(_ context.Context, userID uuid.UUID, title string) (*model.Conversation, error) {
	if title == "" {
		title = "New Chat"
	}
	c := &model.Conversation{ID: uuid.Must(uuid.NewV4()), UserID: userID, Title: title, CreatedAt: time.Now()}
	f.convs[c.ID] = c
	return c, nil
}

func (f *fakeConvService) List(_ context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, c := range f.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConvService) Rename(_ context.Context, userID, id uuid.UUID, title string) (*model.Conversation, error) {
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return nil, errs.ErrNotFound
	}
	c.Title = title
	cpy := *c
	return &cpy, nil
}

func (f *fakeConvService) Delete(_ context.Context, userID, id uuid.UUID) error {
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return errs.ErrNotFound
	}
	delete(f.convs, id)
	return nil
}

func (f *fakeConvService) Messages(_ context.Context, userID, id uuid.UUID) ([]model.Message, error) {
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return f.msgs[id], nil
}

func (f *fakeConvService) Append(_ context.Context, userID, id uuid.UUID, role, content string) (*model.Message, error) {
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return nil, errs.ErrNotFound
	}
	m := model.Message{ID: uuid.Must(uuid.NewV4()), ConversationID: id, Role: role, Content: content}
	f.msgs[id] = append(f.msgs[id], m)
	return &m, nil
}

func newTestServer(auth *fakeAuth, convs service.ConversationService) *Server {
	if convs == nil {
		convs = newFakeConvService()
	}
	return NewServer(auth, convs, zap.NewNop(), NewMetrics(prometheus.NewRegistry()))
}
