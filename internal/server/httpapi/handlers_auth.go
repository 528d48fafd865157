package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"ragkeeper/internal/errs"
	"ragkeeper/internal/model"
	"ragkeeper/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OrgTags  string `json:"orgTags"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	AccessToken      string   `json:"accessToken"`
	RefreshToken     string   `json:"refreshToken"`
	TokenType        string   `json:"tokenType"`
	ExpiresInSeconds int64    `json:"expiresInSeconds"`
	Username         string   `json:"username"`
	Role             string   `json:"role"`
	OrgTags          []string `json:"orgTags"`
}

func newAuthResponse(tokens model.Tokens, u model.User, now time.Time) authResponse {
	return authResponse{
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		TokenType:        "Bearer",
		ExpiresInSeconds: int64(tokens.ExpiresAt.Sub(now).Seconds()),
		Username:         u.Username,
		Role:             string(u.Role),
		OrgTags:          u.OrgTagList(),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "username, email and password are required")
		return
	}
	tokens, u, err := s.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		OrgTags:  req.OrgTags,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAuthResponse(tokens, u, s.now()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "username and password are required")
		return
	}
	tokens, u, err := s.auth.LoginWithIP(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(tokens, u, s.now()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "refreshToken is required")
		return
	}
	tokens, u, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRefreshToken) {
			s.metrics.Rotations.WithLabelValues(outcomeRejected).Inc()
		}
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Rotations.WithLabelValues(outcomeOK).Inc()
	writeJSON(w, http.StatusOK, newAuthResponse(tokens, u, s.now()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeAuth, "unauthorized")
		return
	}
	if err := s.auth.Logout(r.Context(), p.UserID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeAuth, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":   p.UserID,
		"username": p.Username,
		"email":    p.Email,
		"role":     string(p.Role),
		"orgTags":  p.OrgTagList(),
	})
}
