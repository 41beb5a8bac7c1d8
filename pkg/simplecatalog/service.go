package simplecatalog

import (
	"context"
)

// Service defines the main interface for the simple-catalog library.
// Admin-only operations read the caller from the context (see WithSession)
// and re-check the allow-list on every call.
type Service interface {
	// Session operations
	ResolveSession(ctx context.Context, identity Identity) (*Session, error)
	IsAdminEmail(email string) bool
	SyncAdminStatus(ctx context.Context) (*AdminSyncResult, error)

	// Movie operations
	CreateMovie(ctx context.Context, req CreateMovieRequest) (*Movie, error)
	GetMovie(ctx context.Context, id string) (*Movie, error)
	ListMovies(ctx context.Context) ([]*Movie, error)
	UpdateMovie(ctx context.Context, req UpdateMovieRequest) (*Movie, error)
	DeleteMovie(ctx context.Context, id string) (*DeleteMovieResult, error)

	// Image operations
	UploadImage(ctx context.Context, req UploadImageRequest) (*UploadedImage, error)
	PresignImageUpload(ctx context.Context, req PresignImageUploadRequest) (*PresignedUpload, error)
	GetImageURL(ctx context.Context, key string) (*SignedURL, error)

	// Wishlist operations, scoped to the session user
	AddToWishlist(ctx context.Context, movieID string) (*WishlistEntry, error)
	RemoveFromWishlist(ctx context.Context, movieID string) error
	ListWishlist(ctx context.Context) ([]*WishlistItem, error)

	// Wishlist analytics, admin only
	ListWishlistsByMovie(ctx context.Context, movieID string) ([]*WishlistAdminEntry, error)
	CountWishlistsByMovie(ctx context.Context, movieID string) (int64, error)

	// Ping checks the repository and the blob store
	Ping(ctx context.Context) error
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying the resolved session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by WithSession, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*Session)
	return session, ok && session != nil
}
