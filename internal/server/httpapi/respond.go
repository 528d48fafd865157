package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ragkeeper/internal/errs"
)

// errorBody is the machine-readable error shape of every non-2xx response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes exposed to clients.
const (
	codeAuth       = "AUTH"
	codeValidation = "VALIDATION"
	codeConflict   = "CONFLICT"
	codeRateLimit  = "RLIMIT"
	codeUpstream   = "UPSTREAM"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// writeServiceError maps service errors to the HTTP contract. All auth
// failures collapse into the same 401 body; only infrastructure trouble
// becomes a 5xx.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, codeAuth, "unauthorized")
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimit, "too many attempts")
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeConflict, "already exists")
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, codeValidation, "not found")
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, codeUpstream, "internal error")
	}
}
