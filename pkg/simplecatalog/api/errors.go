package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string                     `json:"error"`
	Fields []simplecatalog.FieldError `json:"fields,omitempty"`
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, simplecatalog.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, simplecatalog.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, simplecatalog.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, simplecatalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simplecatalog.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, simplecatalog.ErrStorageUnavailable), errors.Is(err, simplecatalog.ErrSigningFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for err. Internal failures
// get fallback so that store details stay in the logs.
func messageFor(err error, fallback string) string {
	var validationErr *simplecatalog.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	switch {
	case errors.Is(err, simplecatalog.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, simplecatalog.ErrForbidden):
		return "Admin access required"
	case errors.Is(err, simplecatalog.ErrAlreadyExists):
		return "Movie already in wishlist"
	case errors.Is(err, simplecatalog.ErrSigningFailed):
		return simplecatalog.ErrSigningFailed.Error()
	case errors.Is(err, simplecatalog.ErrStorageUnavailable):
		return "Object storage is unavailable"
	case errors.Is(err, simplecatalog.ErrNotFound):
		return notFoundMessage(err)
	default:
		return fallback
	}
}

func notFoundMessage(err error) string {
	var movieErr *simplecatalog.MovieError
	if errors.As(err, &movieErr) {
		return "Movie not found"
	}
	return "Not found"
}

// writeError logs err and writes the JSON error envelope
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	resp := ErrorResponse{Error: messageFor(err, fallback)}

	var validationErr *simplecatalog.ValidationError
	if errors.As(err, &validationErr) {
		resp.Fields = validationErr.Fields
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), fallback, "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

// writeMessage writes a plain error message with status
func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
