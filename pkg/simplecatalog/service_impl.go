package simplecatalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// service implements the Service interface
type service struct {
	repository  Repository
	blobStore   BlobStore
	minter      objectkey.Minter
	policy      ImagePolicy
	keyPrefix   string
	adminEmails []string
	refreshSkew time.Duration
	logger      *slog.Logger
	now         func() time.Time

	issuer    *ImageIssuer
	resolver  *ImageResolver
	wishlists *WishlistManager
	validate  *validator.Validate
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object store holding poster images
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithKeyMinter overrides how object keys are derived
func WithKeyMinter(minter objectkey.Minter) Option {
	return func(s *service) {
		s.minter = minter
	}
}

// WithImagePolicy sets upload limits and URL lifetimes
func WithImagePolicy(policy ImagePolicy) Option {
	return func(s *service) {
		s.policy = policy
	}
}

// WithImageKeyPrefix sets the folder poster keys are minted under and
// accepted from. It overrides the policy's KeyPrefix.
func WithImageKeyPrefix(prefix string) Option {
	return func(s *service) {
		s.keyPrefix = prefix
	}
}

// WithAdminEmails sets the admin allow-list. Values may be comma-separated.
func WithAdminEmails(emails ...string) Option {
	return func(s *service) {
		s.adminEmails = ParseAdminEmails(emails...)
	}
}

// WithRefreshSkew sets how early cached image URLs are re-signed
func WithRefreshSkew(skew time.Duration) Option {
	return func(s *service) {
		s.refreshSkew = skew
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		policy:      DefaultImagePolicy(),
		refreshSkew: DefaultRefreshSkew,
		logger:      slog.Default(),
		now:         time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.keyPrefix != "" {
		s.policy.KeyPrefix = s.keyPrefix
	}
	s.issuer = NewImageIssuer(s.blobStore, s.minter, s.policy, s.logger)
	s.policy = s.issuer.Policy()
	s.resolver = NewImageResolver(s.issuer, s.refreshSkew, s.now, s.logger)
	s.wishlists = NewWishlistManager(s.repository, s.logger, s.now)
	s.validate = newValidator(s.now)

	return s, nil
}

// Session operations

func (s *service) ResolveSession(ctx context.Context, identity Identity) (*Session, error) {
	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, ErrUnauthorized
	}
	admin := IsAdmin(email, s.adminEmails)

	user, err := s.repository.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		user, err = s.createUser(ctx, email, identity, admin)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	default:
		if err := s.refreshUser(ctx, user, identity, admin); err != nil {
			return nil, err
		}
	}

	return &Session{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Image:   user.Image,
		IsAdmin: admin,
	}, nil
}

func (s *service) createUser(ctx context.Context, email string, identity Identity, admin bool) (*User, error) {
	now := s.now().UTC()
	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      identity.Name,
		Image:     identity.Image,
		IsAdmin:   admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.repository.CreateUser(ctx, user)
	if errors.Is(err, ErrAlreadyExists) {
		// Concurrent first sign-in; the other request created the row.
		return s.repository.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.InfoContext(ctx, "created user", "user_id", user.ID, "email", email)
	return user, nil
}

// refreshUser syncs the stored profile and admin snapshot with the identity.
func (s *service) refreshUser(ctx context.Context, user *User, identity Identity, admin bool) error {
	changed := user.IsAdmin != admin
	user.IsAdmin = admin
	if identity.Name != "" && identity.Name != user.Name {
		user.Name = identity.Name
		changed = true
	}
	if identity.Image != "" && identity.Image != user.Image {
		user.Image = identity.Image
		changed = true
	}
	if !changed {
		return nil
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.repository.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *service) IsAdminEmail(email string) bool {
	return IsAdmin(email, s.adminEmails)
}

func (s *service) SyncAdminStatus(ctx context.Context) (*AdminSyncResult, error) {
	if _, err := s.requireSession(ctx); err != nil {
		return nil, err
	}
	if len(s.adminEmails) == 0 {
		return nil, invalidInput("adminEmails", "No admin emails configured")
	}
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	promoted, demoted, err := s.repository.SetAdminSnapshot(ctx, s.adminEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to update admin status: %w", err)
	}
	s.logger.InfoContext(ctx, "synced admin status", "promoted", promoted, "demoted", demoted)

	return &AdminSyncResult{
		Promoted:    promoted,
		Demoted:     demoted,
		AdminEmails: append([]string(nil), s.adminEmails...),
	}, nil
}

// requireAdmin returns the caller's session when the allow-list currently
// grants it admin rights.
func (s *service) requireAdmin(ctx context.Context) (*Session, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !IsAdmin(session.Email, s.adminEmails) {
		return nil, ErrForbidden
	}
	return session, nil
}

func (s *service) requireSession(ctx context.Context) (*Session, error) {
	session, ok := SessionFromContext(ctx)
	if !ok || session.UserID == "" {
		return nil, ErrUnauthorized
	}
	return session, nil
}

// Movie operations

func (s *service) CreateMovie(ctx context.Context, req CreateMovieRequest) (*Movie, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	normalizeMovieRequest(&req)
	if err := validateStruct(s.validate, s.now, req); err != nil {
		return nil, err
	}
	key, err := s.imageKeyFor(req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	movie := &Movie{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		ReleaseYear: req.ReleaseYear,
		Genre:       req.Genre,
		Rating:      *req.Rating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.attachImage(ctx, movie, key)

	if err := s.repository.CreateMovie(ctx, movie); err != nil {
		return nil, &MovieError{MovieID: movie.ID, Op: "create", Err: err}
	}

	s.logger.InfoContext(ctx, "created movie", "movie_id", movie.ID, "image_key", movie.ImageKey)
	return movie, nil
}

func (s *service) GetMovie(ctx context.Context, id string) (*Movie, error) {
	if id == "" {
		return nil, invalidInput("id", "Movie ID is required")
	}
	movie, err := s.repository.GetMovie(ctx, id)
	if err != nil {
		return nil, &MovieError{MovieID: id, Op: "get", Err: err}
	}
	return s.resolver.ResolveMovie(ctx, movie), nil
}

func (s *service) ListMovies(ctx context.Context) ([]*Movie, error) {
	movies, err := s.repository.ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return s.resolveMovies(ctx, movies), nil
}

func (s *service) UpdateMovie(ctx context.Context, req UpdateMovieRequest) (*Movie, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	normalizeMovieRequest(&req.CreateMovieRequest)
	if err := validateStruct(s.validate, s.now, req); err != nil {
		return nil, err
	}
	key, err := s.imageKeyFor(req.CreateMovieRequest)
	if err != nil {
		return nil, err
	}

	movie, err := s.repository.GetMovie(ctx, req.ID)
	if err != nil {
		return nil, &MovieError{MovieID: req.ID, Op: "update", Err: err}
	}

	currentKey := movie.ImageKey
	if currentKey == "" && movie.ImageURL != "" {
		if k, err := s.issuer.KeyFromReference(movie.ImageURL); err == nil {
			currentKey = k
		}
	}

	// A replaced poster's object is deleted.
	if old := imageReference(movie); old != "" && key != "" && key != currentKey {
		s.issuer.Delete(ctx, old)
	}

	movie.Title = req.Title
	movie.Description = req.Description
	movie.ReleaseYear = req.ReleaseYear
	movie.Genre = req.Genre
	movie.Rating = *req.Rating
	movie.UpdatedAt = s.now().UTC()
	if key != movie.ImageKey || (key != "" && movie.ImageURL == "") {
		s.attachImage(ctx, movie, key)
	}

	if err := s.repository.UpdateMovie(ctx, movie); err != nil {
		return nil, &MovieError{MovieID: movie.ID, Op: "update", Err: err}
	}

	s.logger.InfoContext(ctx, "updated movie", "movie_id", movie.ID, "image_key", movie.ImageKey)
	return s.resolver.ResolveMovie(ctx, movie), nil
}

func (s *service) DeleteMovie(ctx context.Context, id string) (*DeleteMovieResult, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, invalidInput("id", "Movie ID is required")
	}

	movie, err := s.repository.GetMovie(ctx, id)
	if err != nil {
		return nil, &MovieError{MovieID: id, Op: "delete", Err: err}
	}

	if ref := imageReference(movie); ref != "" {
		s.issuer.Delete(ctx, ref)
	}

	if err := s.repository.DeleteMovie(ctx, id); err != nil {
		return nil, &MovieError{MovieID: id, Op: "delete", Err: err}
	}

	// Rows the cascade misses are purged by the next wishlist listing.
	removed, err := s.wishlists.PurgeMovie(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to cascade movie delete to wishlists", "movie_id", id, "error", err)
		removed = 0
	}

	s.logger.InfoContext(ctx, "deleted movie", "movie_id", id, "wishlist_items_deleted", removed)
	return &DeleteMovieResult{MovieID: id, WishlistItemsDeleted: removed}, nil
}

// imageKeyFor returns the storage key a movie request refers to, recovering
// it from ImageURL when only the URL was sent.
func (s *service) imageKeyFor(req CreateMovieRequest) (string, error) {
	if req.ImageKey != "" {
		if err := s.issuer.CheckKey(req.ImageKey); err != nil {
			return "", invalidInput("imageKey", "imageKey does not reference a stored image")
		}
		return req.ImageKey, nil
	}
	if req.ImageURL != "" {
		key, err := s.issuer.KeyFromReference(req.ImageURL)
		if err != nil {
			return "", invalidInput("imageUrl", "imageUrl does not reference a stored image")
		}
		return key, nil
	}
	return "", nil
}

// attachImage sets key on movie along with a fresh display URL. A signing
// failure leaves the URL empty for the resolver to fill in on read.
func (s *service) attachImage(ctx context.Context, movie *Movie, key string) {
	movie.ImageKey = key
	movie.ImageURL = ""
	movie.ImageURLExpiresAt = nil
	if key == "" {
		return
	}

	signed, err := s.issuer.Sign(ctx, key, s.policy.DisplayTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to sign image URL", "movie_id", movie.ID, "key", key, "error", err)
		return
	}
	exp := signed.ExpiresAt
	movie.ImageURL = signed.URL
	movie.ImageURLExpiresAt = &exp
}

func (s *service) resolveMovies(ctx context.Context, movies []*Movie) []*Movie {
	return iter.Map(movies, func(m **Movie) *Movie {
		return s.resolver.ResolveMovie(ctx, *m)
	})
}

func imageReference(m *Movie) string {
	if m.ImageKey != "" {
		return m.ImageKey
	}
	return m.ImageURL
}

// Image operations

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) (*UploadedImage, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.issuer.Upload(ctx, req)
}

func (s *service) PresignImageUpload(ctx context.Context, req PresignImageUploadRequest) (*PresignedUpload, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.issuer.PresignUpload(ctx, req)
}

func (s *service) GetImageURL(ctx context.Context, key string) (*SignedURL, error) {
	if key == "" {
		return nil, invalidInput("key", "Image key is required")
	}
	if err := s.issuer.CheckKey(key); err != nil {
		return nil, err
	}
	return s.issuer.Sign(ctx, key, s.policy.DisplayTTL)
}

// Wishlist operations

func (s *service) AddToWishlist(ctx context.Context, movieID string) (*WishlistEntry, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.wishlists.Add(ctx, session.UserID, movieID)
}

func (s *service) RemoveFromWishlist(ctx context.Context, movieID string) error {
	session, err := s.requireSession(ctx)
	if err != nil {
		return err
	}
	return s.wishlists.Remove(ctx, session.UserID, movieID)
}

func (s *service) ListWishlist(ctx context.Context) ([]*WishlistItem, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.wishlists.List(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return iter.Map(items, func(item **WishlistItem) *WishlistItem {
		return &WishlistItem{Entry: (*item).Entry, Movie: s.resolver.ResolveMovie(ctx, (*item).Movie)}
	}), nil
}

func (s *service) ListWishlistsByMovie(ctx context.Context, movieID string) ([]*WishlistAdminEntry, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.wishlists.ListByMovie(ctx, movieID)
}

func (s *service) CountWishlistsByMovie(ctx context.Context, movieID string) (int64, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return 0, err
	}
	return s.wishlists.CountByMovie(ctx, movieID)
}

func (s *service) Ping(ctx context.Context) error {
	if err := s.repository.Ping(ctx); err != nil {
		return fmt.Errorf("repository ping failed: %w", err)
	}
	if err := s.blobStore.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: fmt.Errorf("%w: %v", ErrStorageUnavailable, err)}
	}
	return nil
}
