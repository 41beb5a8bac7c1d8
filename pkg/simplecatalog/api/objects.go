package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/presigned"
)

// ObjectStore is a blob store whose objects the application serves itself
type ObjectStore interface {
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectKey string) (io.ReadCloser, string, error)
}

// ObjectHandler serves signed GET and PUT URLs issued by a Signer. It backs
// the in-memory blob store, which has no public endpoint of its own.
type ObjectHandler struct {
	store   ObjectStore
	signer  *presigned.Signer
	maxSize int64
}

// NewObjectHandler creates an object handler. Uploads above maxSize bytes are rejected.
func NewObjectHandler(store ObjectStore, signer *presigned.Signer, maxSize int64) *ObjectHandler {
	return &ObjectHandler{store: store, signer: signer, maxSize: maxSize}
}

// Routes returns the routes for signed objects, meant to be mounted at /objects
func (h *ObjectHandler) Routes() chi.Router {
	r := chi.NewRouter()
	validated := presigned.ValidateMiddleware(h.signer, http.HandlerFunc(h.serve))
	r.Get("/*", validated.ServeHTTP)
	r.Put("/*", validated.ServeHTTP)
	return r
}

func (h *ObjectHandler) serve(w http.ResponseWriter, r *http.Request) {
	objectKey := presigned.ObjectKeyFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		h.download(w, r, objectKey)
	case http.MethodPut:
		h.upload(w, r, objectKey)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *ObjectHandler) download(w http.ResponseWriter, r *http.Request, objectKey string) {
	rc, contentType, err := h.store.Download(r.Context(), objectKey)
	if err != nil {
		slog.DebugContext(r.Context(), "object download failed", "key", objectKey, "error", err)
		writeMessage(w, r, http.StatusNotFound, "Object not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "object download copy error", "key", objectKey, "error", err)
	}
}

func (h *ObjectHandler) upload(w http.ResponseWriter, r *http.Request, objectKey string) {
	if h.maxSize > 0 && r.ContentLength > h.maxSize {
		writeMessage(w, r, http.StatusRequestEntityTooLarge, "Object too large. Maximum size is "+strconv.FormatInt(h.maxSize, 10)+" bytes.")
		return
	}

	body := io.Reader(r.Body)
	if h.maxSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxSize)
	}

	err := h.store.Put(r.Context(), objectKey, body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, r, http.StatusRequestEntityTooLarge, "Object too large")
			return
		}
		slog.ErrorContext(r.Context(), "object upload failed", "key", objectKey, "error", err)
		writeMessage(w, r, http.StatusBadGateway, "Failed to store object")
		return
	}

	slog.InfoContext(r.Context(), "object stored", "key", objectKey)
	w.WriteHeader(http.StatusOK)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthHandler reports whether the repository and blob store answer
func StoreHealthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "store health check failed", "error", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
