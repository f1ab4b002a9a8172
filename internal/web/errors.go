package web

// errors.go maps service errors to HTTP responses.
//
// Every error is logged with its technical detail and the request id, then
// sent to the client as a core.UserMessage: JSON for /api routes, an HTML
// alert for pages.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
	"github.com/JonMunkholm/pastegrid/internal/logging"
	"github.com/JonMunkholm/pastegrid/internal/web/views"
)

var errInvalidBody = errors.New("invalid request body")

// ErrorResponse is the JSON body of API errors. Details carries per-row
// validation messages when a save is blocked.
type ErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Action  string                       `json:"action,omitempty"`
	Code    string                       `json:"code"`
	Details map[string]map[string]string `json:"details,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrUnknownTable),
		errors.Is(err, grid.ErrRowNotFound),
		errors.Is(err, grid.ErrColumnNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidMode),
		errors.Is(err, errInvalidBody),
		errors.Is(err, grid.ErrReadOnlyColumn):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrPasteTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotEditSession),
		errors.Is(err, grid.ErrNothingToSave),
		errors.Is(err, grid.ErrSaveInProgress):
		return http.StatusConflict
	case errors.Is(err, grid.ErrInvalidRows):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManySaves):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"mapped", core.IsUserFacing(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		views.Page("Error", views.ErrorAlert(msg)).Render(r.Context(), w)
		return
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var rowErr *grid.RowValidationError
	if errors.As(err, &rowErr) {
		resp.Details = rowErr.Errors
	}
	writeJSONStatus(w, status, resp)
}

// wantsJSON reports whether the client expects a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
