package simplecatalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// WishlistManager keeps wishlist rows consistent with the movies they
// reference. Every row's movie must resolve or be purged lazily on listing.
type WishlistManager struct {
	wishlists WishlistRepository
	movies    MovieRepository
	users     UserRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewWishlistManager creates a manager over the given repositories.
func NewWishlistManager(repo Repository, logger *slog.Logger, now func() time.Time) *WishlistManager {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &WishlistManager{
		wishlists: repo,
		movies:    repo,
		users:     repo,
		logger:    logger,
		now:       now,
	}
}

// Add puts movieID on userID's wishlist. The pre-check gives a friendly
// error; the repository's unique constraint settles concurrent adds.
func (w *WishlistManager) Add(ctx context.Context, userID, movieID string) (*WishlistEntry, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if movieID == "" {
		return nil, invalidInput("movieId", "Movie ID is required")
	}

	if _, err := w.movies.GetMovie(ctx, movieID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &MovieError{MovieID: movieID, Op: "wishlist_add", Err: ErrNotFound}
		}
		return nil, fmt.Errorf("failed to look up movie: %w", err)
	}

	existing, err := w.wishlists.FindWishlistEntry(ctx, userID, movieID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check wishlist: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("movie already in wishlist: %w", ErrAlreadyExists)
	}

	entry := &WishlistEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		MovieID:   movieID,
		CreatedAt: w.now().UTC(),
	}
	if err := w.wishlists.CreateWishlistEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("movie already in wishlist: %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return entry, nil
}

// Remove deletes the (userID, movieID) pair.
func (w *WishlistManager) Remove(ctx context.Context, userID, movieID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if movieID == "" {
		return invalidInput("movieId", "Movie ID is required")
	}

	deleted, err := w.wishlists.DeleteWishlistEntry(ctx, userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("movie not found in wishlist: %w", ErrNotFound)
	}
	return nil
}

// List returns userID's wishlist joined with movies, newest first. Rows whose
// movie no longer exists are left out and deleted.
func (w *WishlistManager) List(ctx context.Context, userID string) ([]*WishlistItem, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	entries, err := w.wishlists.ListWishlistEntries(ctx, WishlistFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}

	movies, err := w.movies.GetMoviesByIDs(ctx, movieIDs(entries))
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist movies: %w", err)
	}

	items := make([]*WishlistItem, 0, len(entries))
	var orphaned []string
	for _, entry := range entries {
		movie, ok := movies[entry.MovieID]
		if !ok {
			orphaned = append(orphaned, entry.ID)
			continue
		}
		items = append(items, &WishlistItem{Entry: entry, Movie: movie})
	}

	w.purge(ctx, userID, orphaned)
	return items, nil
}

// purge deletes orphaned rows. Failures are only logged; the next listing retries.
func (w *WishlistManager) purge(ctx context.Context, userID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	deleted, err := w.wishlists.DeleteWishlistEntriesByIDs(ctx, ids)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to purge orphaned wishlist entries", "user_id", userID, "count", len(ids), "error", err)
		return
	}
	w.logger.InfoContext(ctx, "purged orphaned wishlist entries", "user_id", userID, "deleted", deleted)
}

// ListByMovie returns wishlist rows for administrative reporting, optionally
// restricted to one movie. Rows whose movie is gone are skipped, not purged.
func (w *WishlistManager) ListByMovie(ctx context.Context, movieID string) ([]*WishlistAdminEntry, error) {
	entries, err := w.wishlists.ListWishlistEntries(ctx, WishlistFilter{MovieID: movieID})
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist data: %w", err)
	}

	movies, err := w.movies.GetMoviesByIDs(ctx, movieIDs(entries))
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist movies: %w", err)
	}

	userIDs := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.UserID]; ok {
			continue
		}
		seen[entry.UserID] = struct{}{}
		userIDs = append(userIDs, entry.UserID)
	}
	users, err := w.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist users: %w", err)
	}

	result := make([]*WishlistAdminEntry, 0, len(entries))
	for _, entry := range entries {
		movie, ok := movies[entry.MovieID]
		if !ok {
			continue
		}
		row := &WishlistAdminEntry{Entry: entry, MovieTitle: movie.Title}
		if user, ok := users[entry.UserID]; ok {
			row.UserName = user.Name
			row.UserEmail = user.Email
		}
		result = append(result, row)
	}
	return result, nil
}

// CountByMovie counts wishlist rows referencing movieID.
func (w *WishlistManager) CountByMovie(ctx context.Context, movieID string) (int64, error) {
	if movieID == "" {
		return 0, invalidInput("movieId", "Movie ID is required")
	}
	return w.wishlists.CountWishlistEntries(ctx, WishlistFilter{MovieID: movieID})
}

// PurgeMovie cascades a movie deletion into the wishlist.
func (w *WishlistManager) PurgeMovie(ctx context.Context, movieID string) (int64, error) {
	return w.wishlists.DeleteWishlistEntriesByMovie(ctx, movieID)
}

func movieIDs(entries []*WishlistEntry) []string {
	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.MovieID]; ok {
			continue
		}
		seen[e.MovieID] = struct{}{}
		ids = append(ids, e.MovieID)
	}
	return ids
}
