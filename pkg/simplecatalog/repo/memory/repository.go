package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Repository implements simplecatalog.Repository using in-memory storage
type Repository struct {
	mu          sync.RWMutex
	movies      map[string]*simplecatalog.Movie
	wishlist    map[string]*simplecatalog.WishlistEntry
	wishlistKey map[string]string // "user|movie" -> entry id
	users       map[string]*simplecatalog.User
	usersEmail  map[string]string // email -> user id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		movies:      make(map[string]*simplecatalog.Movie),
		wishlist:    make(map[string]*simplecatalog.WishlistEntry),
		wishlistKey: make(map[string]string),
		users:       make(map[string]*simplecatalog.User),
		usersEmail:  make(map[string]string),
	}
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Movie operations

func (r *Repository) CreateMovie(ctx context.Context, movie *simplecatalog.Movie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.movies[movie.ID]; exists {
		return fmt.Errorf("movie %s: %w", movie.ID, simplecatalog.ErrAlreadyExists)
	}
	r.movies[movie.ID] = copyMovie(movie)
	return nil
}

func (r *Repository) GetMovie(ctx context.Context, id string) (*simplecatalog.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	movie, exists := r.movies[id]
	if !exists {
		return nil, simplecatalog.ErrNotFound
	}
	return copyMovie(movie), nil
}

func (r *Repository) GetMoviesByIDs(ctx context.Context, ids []string) (map[string]*simplecatalog.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*simplecatalog.Movie, len(ids))
	for _, id := range ids {
		if movie, exists := r.movies[id]; exists {
			result[id] = copyMovie(movie)
		}
	}
	return result, nil
}

func (r *Repository) ListMovies(ctx context.Context) ([]*simplecatalog.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplecatalog.Movie, 0, len(r.movies))
	for _, movie := range r.movies {
		result = append(result, copyMovie(movie))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) UpdateMovie(ctx context.Context, movie *simplecatalog.Movie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.movies[movie.ID]; !exists {
		return simplecatalog.ErrNotFound
	}
	r.movies[movie.ID] = copyMovie(movie)
	return nil
}

func (r *Repository) DeleteMovie(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.movies[id]; !exists {
		return simplecatalog.ErrNotFound
	}
	delete(r.movies, id)
	return nil
}

// Wishlist operations

func (r *Repository) CreateWishlistEntry(ctx context.Context, entry *simplecatalog.WishlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := pairKey(entry.UserID, entry.MovieID)
	if _, exists := r.wishlistKey[pair]; exists {
		return fmt.Errorf("wishlist entry for user %s and movie %s: %w", entry.UserID, entry.MovieID, simplecatalog.ErrAlreadyExists)
	}

	entryCopy := *entry
	r.wishlist[entry.ID] = &entryCopy
	r.wishlistKey[pair] = entry.ID
	return nil
}

func (r *Repository) FindWishlistEntry(ctx context.Context, userID, movieID string) (*simplecatalog.WishlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.wishlistKey[pairKey(userID, movieID)]
	if !exists {
		return nil, simplecatalog.ErrNotFound
	}
	entryCopy := *r.wishlist[id]
	return &entryCopy, nil
}

func (r *Repository) ListWishlistEntries(ctx context.Context, filter simplecatalog.WishlistFilter) ([]*simplecatalog.WishlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simplecatalog.WishlistEntry
	for _, entry := range r.wishlist {
		if matches(entry, filter) {
			entryCopy := *entry
			result = append(result, &entryCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) CountWishlistEntries(ctx context.Context, filter simplecatalog.WishlistFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, entry := range r.wishlist {
		if matches(entry, filter) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) DeleteWishlistEntry(ctx context.Context, userID, movieID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.wishlistKey[pairKey(userID, movieID)]
	if !exists {
		return 0, nil
	}
	r.deleteEntryLocked(id)
	return 1, nil
}

func (r *Repository) DeleteWishlistEntriesByIDs(ctx context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, exists := r.wishlist[id]; exists {
			r.deleteEntryLocked(id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *Repository) DeleteWishlistEntriesByMovie(ctx context.Context, movieID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, entry := range r.wishlist {
		if entry.MovieID == movieID {
			r.deleteEntryLocked(id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *Repository) deleteEntryLocked(id string) {
	entry := r.wishlist[id]
	delete(r.wishlistKey, pairKey(entry.UserID, entry.MovieID))
	delete(r.wishlist, id)
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *simplecatalog.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersEmail[user.Email]; exists {
		return fmt.Errorf("user %s: %w", user.Email, simplecatalog.ErrAlreadyExists)
	}
	userCopy := *user
	r.users[user.ID] = &userCopy
	r.usersEmail[user.Email] = user.ID
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simplecatalog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.usersEmail[email]
	if !exists {
		return nil, simplecatalog.ErrNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*simplecatalog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*simplecatalog.User, len(ids))
	for _, id := range ids {
		if user, exists := r.users[id]; exists {
			userCopy := *user
			result[id] = &userCopy
		}
	}
	return result, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *simplecatalog.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.users[user.ID]
	if !exists {
		return simplecatalog.ErrNotFound
	}
	if existing.Email != user.Email {
		if _, taken := r.usersEmail[user.Email]; taken {
			return fmt.Errorf("user %s: %w", user.Email, simplecatalog.ErrAlreadyExists)
		}
		delete(r.usersEmail, existing.Email)
		r.usersEmail[user.Email] = user.ID
	}
	userCopy := *user
	r.users[user.ID] = &userCopy
	return nil
}

func (r *Repository) SetAdminSnapshot(ctx context.Context, adminEmails []string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var promoted, demoted int64
	for _, user := range r.users {
		admin := simplecatalog.IsAdmin(user.Email, adminEmails)
		switch {
		case admin && !user.IsAdmin:
			user.IsAdmin = true
			promoted++
		case !admin && user.IsAdmin:
			user.IsAdmin = false
			demoted++
		}
	}
	return promoted, demoted, nil
}

func matches(entry *simplecatalog.WishlistEntry, filter simplecatalog.WishlistFilter) bool {
	if filter.UserID != "" && entry.UserID != filter.UserID {
		return false
	}
	if filter.MovieID != "" && entry.MovieID != filter.MovieID {
		return false
	}
	return true
}

func pairKey(userID, movieID string) string {
	return userID + "|" + movieID
}

func copyMovie(m *simplecatalog.Movie) *simplecatalog.Movie {
	movieCopy := *m
	if m.ImageURLExpiresAt != nil {
		exp := *m.ImageURLExpiresAt
		movieCopy.ImageURLExpiresAt = &exp
	}
	return &movieCopy
}

var _ simplecatalog.Repository = (*Repository)(nil)
