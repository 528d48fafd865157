package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"ragkeeper/internal/model"
)

type conversationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageResponse struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toConversationResponse(c model.Conversation) conversationResponse {
	return conversationResponse{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}
}

func toMessageResponse(m model.Message) messageResponse {
	return messageResponse{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

// pathUUID parses the named chi URL parameter as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	return id, err == nil
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	var req createConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.convs.Create(r.Context(), p.UserID, req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversationResponse(*c))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	list, err := s.convs.List(r.Context(), p.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]conversationResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toConversationResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid conversation id")
		return
	}
	var req renameConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "title is required")
		return
	}
	c, err := s.convs.Rename(r.Context(), p.UserID, id, req.Title)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(*c))
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid conversation id")
		return
	}
	if err := s.convs.Delete(r.Context(), p.UserID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid conversation id")
		return
	}
	list, err := s.convs.Messages(r.Context(), p.UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]messageResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromCtx(r.Context())
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid conversation id")
		return
	}
	var req appendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := s.convs.Append(r.Context(), p.UserID, id, req.Role, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(*m))
}
