package simplecatalog

import (
	"context"
	"io"
	"time"
)

//go:generate mockgen -destination=mocks/blobstore_mock.go -package=mocks . BlobStore

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// Put stores size bytes read from reader at objectKey
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error

	// SignGet returns a read-only URL for objectKey valid for ttl
	SignGet(ctx context.Context, objectKey string, ttl time.Duration) (*SignedURL, error)

	// SignPut returns a URL a client can PUT objectKey to, valid for ttl
	SignPut(ctx context.Context, objectKey string, contentType string, ttl time.Duration) (*SignedURL, error)

	// Delete removes objectKey
	Delete(ctx context.Context, objectKey string) error

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error
}

// MovieRepository persists catalog records.
type MovieRepository interface {
	CreateMovie(ctx context.Context, movie *Movie) error
	GetMovie(ctx context.Context, id string) (*Movie, error)
	// GetMoviesByIDs returns the movies that exist among ids, keyed by ID.
	GetMoviesByIDs(ctx context.Context, ids []string) (map[string]*Movie, error)
	// ListMovies returns all movies, newest first.
	ListMovies(ctx context.Context) ([]*Movie, error)
	UpdateMovie(ctx context.Context, movie *Movie) error
	DeleteMovie(ctx context.Context, id string) error
}

// WishlistRepository persists wishlist rows. Implementations must enforce
// uniqueness of (UserID, MovieID) and report violations as ErrAlreadyExists.
type WishlistRepository interface {
	CreateWishlistEntry(ctx context.Context, entry *WishlistEntry) error
	FindWishlistEntry(ctx context.Context, userID, movieID string) (*WishlistEntry, error)
	// ListWishlistEntries returns rows newest first, optionally filtered.
	ListWishlistEntries(ctx context.Context, filter WishlistFilter) ([]*WishlistEntry, error)
	CountWishlistEntries(ctx context.Context, filter WishlistFilter) (int64, error)
	DeleteWishlistEntry(ctx context.Context, userID, movieID string) (int64, error)
	DeleteWishlistEntriesByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteWishlistEntriesByMovie(ctx context.Context, movieID string) (int64, error)
}

// UserRepository persists signed-in accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	// SetAdminSnapshot marks users whose email is in adminEmails as admins and
	// clears the flag for everyone else, returning (promoted, demoted).
	SetAdminSnapshot(ctx context.Context, adminEmails []string) (int64, int64, error)
}

// Repository is the document store used by the service.
type Repository interface {
	MovieRepository
	WishlistRepository
	UserRepository

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// WishlistFilter narrows wishlist queries. Empty fields match everything.
type WishlistFilter struct {
	UserID  string
	MovieID string
}
