package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// maxUploadBody bounds multipart upload bodies; the service enforces the
// image size limit itself.
const maxUploadBody = 10 << 20

const maxJSONBody = 1 << 20

// WishlistItemResponse is a wishlist row with its movie
type WishlistItemResponse struct {
	ID        string               `json:"id"`
	UserID    string               `json:"userId"`
	MovieID   string               `json:"movieId"`
	CreatedAt time.Time            `json:"createdAt"`
	Movie     *simplecatalog.Movie `json:"movie"`
}

// AdminWishlistEntryResponse is one row of the admin wishlist report
type AdminWishlistEntryResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	MovieID    string    `json:"movieId"`
	CreatedAt  time.Time `json:"createdAt"`
	UserName   string    `json:"userName"`
	UserEmail  string    `json:"userEmail"`
	MovieTitle string    `json:"movieTitle"`
}

// AdminWishlistsResponse is the body of the admin wishlist report
type AdminWishlistsResponse struct {
	Wishlists []AdminWishlistEntryResponse `json:"wishlists"`
	Count     int64                        `json:"count"`
}

// DeleteMovieResponse reports a completed movie deletion
type DeleteMovieResponse struct {
	Message              string `json:"message"`
	WishlistItemsDeleted int64  `json:"wishlistItemsDeleted"`
}

// ImageURLResponse carries a fresh access URL
type ImageURLResponse struct {
	ImageURL  string    `json:"imageUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminSyncResponse reports an admin snapshot sync
type AdminSyncResponse struct {
	Message string `json:"message"`
	*simplecatalog.AdminSyncResult
}

// Handler serves the catalog HTTP API
type Handler struct {
	service simplecatalog.Service
	logger  *slog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(service simplecatalog.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the routes for the API, meant to be mounted at /api
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/movies", h.ListMovies)
	r.Post("/movies", h.CreateMovie)
	r.Get("/movies/{id}", h.GetMovie)
	r.Put("/movies/{id}", h.UpdateMovie)
	r.Delete("/movies/{id}", h.DeleteMovie)

	r.Get("/wishlist", h.ListWishlist)
	r.Post("/wishlist", h.AddToWishlist)
	r.Delete("/wishlist", h.RemoveFromWishlist)
	r.Delete("/wishlist/{movieId}", h.RemoveFromWishlist)

	r.Get("/images/*", h.GetImageURL)
	r.Post("/upload", h.UploadImage)
	r.Post("/upload/presign", h.PresignImageUpload)

	r.Get("/admin/wishlists", h.ListAdminWishlists)
	r.Post("/admin/update-admin-status", h.SyncAdminStatus)

	r.Get("/session", h.GetSession)

	return r
}

// Movies

func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.service.ListMovies(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch movies")
		return
	}
	render.JSON(w, r, movies)
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.service.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to fetch movie")
		return
	}
	render.JSON(w, r, movie)
}

func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	var body movieBody
	if err := readJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	movie, err := h.service.CreateMovie(r.Context(), body.toRequest())
	if err != nil {
		writeError(w, r, err, "Failed to create movie")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, movie)
}

func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	var body movieBody
	if err := readJSON(r, &body); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	movie, err := h.service.UpdateMovie(r.Context(), simplecatalog.UpdateMovieRequest{
		ID:                 chi.URLParam(r, "id"),
		CreateMovieRequest: body.toRequest(),
	})
	if err != nil {
		writeError(w, r, err, "Failed to update movie")
		return
	}
	render.JSON(w, r, movie)
}

func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeleteMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to delete movie")
		return
	}
	render.JSON(w, r, DeleteMovieResponse{
		Message:              "Movie deleted successfully",
		WishlistItemsDeleted: result.WishlistItemsDeleted,
	})
}

// Wishlist

func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListWishlist(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch wishlist")
		return
	}

	resp := make([]WishlistItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, WishlistItemResponse{
			ID:        item.Entry.ID,
			UserID:    item.Entry.UserID,
			MovieID:   item.Entry.MovieID,
			CreatedAt: item.Entry.CreatedAt,
			Movie:     item.Movie,
		})
	}
	render.JSON(w, r, resp)
}

func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	var req simplecatalog.AddWishlistRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.service.AddToWishlist(r.Context(), strings.TrimSpace(req.MovieID))
	if err != nil {
		writeError(w, r, err, "Failed to add to wishlist")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, entry)
}

func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	movieID := chi.URLParam(r, "movieId")
	if movieID == "" {
		movieID = r.URL.Query().Get("movieId")
	}
	if movieID == "" && r.ContentLength != 0 {
		var req simplecatalog.AddWishlistRequest
		if err := readJSON(r, &req); err != nil {
			writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		movieID = req.MovieID
	}

	if err := h.service.RemoveFromWishlist(r.Context(), strings.TrimSpace(movieID)); err != nil {
		if errors.Is(err, simplecatalog.ErrNotFound) {
			writeMessage(w, r, http.StatusNotFound, "Movie not found in wishlist")
			return
		}
		writeError(w, r, err, "Failed to remove from wishlist")
		return
	}
	render.JSON(w, r, map[string]string{"message": "Removed from wishlist successfully"})
}

// Images

func (h *Handler) GetImageURL(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || key == "" {
		writeMessage(w, r, http.StatusBadRequest, "Image key is required")
		return
	}

	signed, err := h.service.GetImageURL(r.Context(), key)
	if err != nil {
		writeError(w, r, err, "Failed to generate image URL")
		return
	}
	render.JSON(w, r, ImageURLResponse{ImageURL: signed.URL, ExpiresAt: signed.ExpiresAt})
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, r, http.StatusBadRequest, "File too large. Maximum size is 5MB.")
			return
		}
		writeMessage(w, r, http.StatusBadRequest, "No file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	uploaded, err := h.service.UploadImage(r.Context(), simplecatalog.UploadImageRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		writeError(w, r, err, "Failed to upload file")
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"message":   "File uploaded successfully",
		"imageKey":  uploaded.Key,
		"imageUrl":  uploaded.URL,
		"expiresAt": uploaded.ExpiresAt,
	})
}

func (h *Handler) PresignImageUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	var req simplecatalog.PresignImageUploadRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	upload, err := h.service.PresignImageUpload(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Failed to generate upload URL")
		return
	}
	render.JSON(w, r, upload)
}

// Admin

func (h *Handler) ListAdminWishlists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := strings.TrimSpace(r.URL.Query().Get("movieId"))

	entries, err := h.service.ListWishlistsByMovie(ctx, movieID)
	if err != nil {
		writeError(w, r, err, "Failed to fetch wishlist data")
		return
	}

	count := int64(len(entries))
	if movieID != "" {
		if count, err = h.service.CountWishlistsByMovie(ctx, movieID); err != nil {
			writeError(w, r, err, "Failed to fetch wishlist data")
			return
		}
	}

	resp := AdminWishlistsResponse{Wishlists: make([]AdminWishlistEntryResponse, 0, len(entries)), Count: count}
	for _, e := range entries {
		resp.Wishlists = append(resp.Wishlists, AdminWishlistEntryResponse{
			ID:         e.Entry.ID,
			UserID:     e.Entry.UserID,
			MovieID:    e.Entry.MovieID,
			CreatedAt:  e.Entry.CreatedAt,
			UserName:   e.UserName,
			UserEmail:  e.UserEmail,
			MovieTitle: e.MovieTitle,
		})
	}
	render.JSON(w, r, resp)
}

func (h *Handler) SyncAdminStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncAdminStatus(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to update admin status")
		return
	}
	h.logger.InfoContext(r.Context(), "admin status synced", "promoted", result.Promoted, "demoted", result.Demoted)
	render.JSON(w, r, AdminSyncResponse{Message: "Admin status updated successfully", AdminSyncResult: result})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := simplecatalog.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, simplecatalog.ErrUnauthorized, "Unauthorized")
		return
	}
	render.JSON(w, r, session)
}

// requireSession rejects anonymous writes before the body is read.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := simplecatalog.SessionFromContext(r.Context()); !ok {
		writeError(w, r, simplecatalog.ErrUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func readJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return err
	}
	return decodeJSON(body, v)
}
