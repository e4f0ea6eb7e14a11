package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Warn("Failed to write response", "error", err)
		}
	}
}

// respondError maps a service error to a status code. Only validation
// messages reach the user verbatim; everything else names the failed action.
func respondError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Message, Code: "validation", Field: ve.Field})
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "Unable to " + action, Code: "not_found"})
	case errors.Is(err, domain.ErrForbidden):
		respondJSON(w, http.StatusForbidden, ErrorResponse{Error: "Unable to " + action, Code: "forbidden"})
	case errors.Is(err, domain.ErrMeetupFull):
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: "This meetup is full", Code: "meetup_full"})
	case errors.Is(err, domain.ErrAlreadyMember):
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: "You are already a member", Code: "already_member"})
	case errors.Is(err, domain.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: "Unable to " + action, Code: "conflict"})
	default:
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "action", action, "error", err)
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Unable to " + action, Code: "internal"})
	}
}

func respondMessage(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// decodeJSON reads a JSON body. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON that also accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError("", "invalid request body")
	}
	return nil
}
