package presigned

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type contextKey string

// ObjectKeyContextKey is the context key for storing the validated object key
const ObjectKeyContextKey contextKey = "presigned:object_key"

// ValidateMiddleware returns HTTP middleware that validates signed URLs.
// Requests that pass carry the decoded object key in their context.
//
// Example:
//
//	r.Handle("/objects/*", presigned.ValidateMiddleware(signer, objectHandler))
func ValidateMiddleware(signer *Signer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := signer.ValidateRequest(r); err != nil {
			handleValidationError(w, err)
			return
		}

		objectKey, err := signer.ExtractObjectKey(r.URL.EscapedPath())
		if err != nil || objectKey == "" {
			slog.Warn("presigned: failed to extract object key", "path", r.URL.Path, "error", err)
			http.Error(w, "Invalid object URL", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ObjectKeyContextKey, objectKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ObjectKeyFromContext extracts the validated object key from the request context
// Returns empty string if not found
func ObjectKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(ObjectKeyContextKey).(string); ok {
		return key
	}
	return ""
}

func handleValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingSignature):
		http.Error(w, "Missing signature parameter", http.StatusUnauthorized)
	case errors.Is(err, ErrMissingExpiration):
		http.Error(w, "Missing expires parameter", http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidExpiration):
		http.Error(w, "Invalid expires parameter", http.StatusBadRequest)
	case errors.Is(err, ErrExpired):
		http.Error(w, "Signed URL has expired", http.StatusForbidden)
	case errors.Is(err, ErrInvalidSignature):
		http.Error(w, "Invalid signature", http.StatusForbidden)
	case errors.Is(err, ErrNoSecretKey):
		http.Error(w, "Signed URLs are not enabled", http.StatusNotFound)
	default:
		slog.Warn("presigned: validation error", "error", err)
		http.Error(w, "Authentication failed", http.StatusForbidden)
	}
}
