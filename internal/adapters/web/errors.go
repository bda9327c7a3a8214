package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"quotedesk/internal/ai"
	"quotedesk/internal/core"

	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeAppError maps a service error onto its HTTP status. Unclassified errors
// are logged and reported as 500 without their message.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: requestIDFromContext(r.Context())}
	var (
		validation   *core.ValidationError
		notFound     *core.NotFoundError
		transition   *core.InvalidTransitionError
		unauthorized *core.UnauthorizedError
		forbidden    *core.ForbiddenError
		status       int
	)
	switch {
	case errors.As(err, &validation):
		resp.Code, resp.Field, status = "VALIDATION_ERROR", validation.Field, http.StatusBadRequest
	case errors.As(err, &notFound):
		resp.Code, status = "NOT_FOUND", http.StatusNotFound
	case errors.As(err, &transition):
		resp.Code, status = "INVALID_TRANSITION", http.StatusConflict
	case errors.As(err, &unauthorized):
		resp.Code, status = "UNAUTHORIZED", http.StatusUnauthorized
	case errors.As(err, &forbidden):
		resp.Code, status = "FORBIDDEN", http.StatusForbidden
	case errors.Is(err, ai.ErrNotConfigured):
		resp.Code, status = "NOT_CONFIGURED", http.StatusServiceUnavailable
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"request_id": resp.RequestID,
			"path":       r.URL.Path,
		}).Error("request failed")
		resp.Error, resp.Code, status = "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError
	}
	writeErrorResponse(w, status, resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
