package simplecatalog_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/presigned"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   simplecatalog.Service
	repo  *memory.Repository
	blobs *memorystorage.Backend
	admin context.Context
	user  context.Context
}

func newTestEnv(t *testing.T, opts ...simplecatalog.Option) *testEnv {
	t.Helper()
	clock := func() time.Time { return testNow }
	repo := memory.New()
	signer := presigned.New(presigned.WithSecretKey("test-secret"), presigned.WithClock(clock))
	blobs := memorystorage.New(signer, "http://localhost:8080")

	base := []simplecatalog.Option{
		simplecatalog.WithRepository(repo),
		simplecatalog.WithBlobStore(blobs),
		simplecatalog.WithAdminEmails("admin@example.com"),
		simplecatalog.WithClock(clock),
	}
	svc, err := simplecatalog.New(append(base, opts...)...)
	require.NoError(t, err)

	ctx := context.Background()
	adminSession, err := svc.ResolveSession(ctx, simplecatalog.Identity{Email: "admin@example.com", Name: "Admin"})
	require.NoError(t, err)
	userSession, err := svc.ResolveSession(ctx, simplecatalog.Identity{Email: "user@example.com", Name: "User"})
	require.NoError(t, err)

	return &testEnv{
		svc:   svc,
		repo:  repo,
		blobs: blobs,
		admin: simplecatalog.WithSession(ctx, adminSession),
		user:  simplecatalog.WithSession(ctx, userSession),
	}
}

func rating(v float64) *float64 { return &v }

func validMovie(title string) simplecatalog.CreateMovieRequest {
	return simplecatalog.CreateMovieRequest{
		Title:       title,
		Description: "A film about " + title,
		ReleaseYear: 1999,
		Genre:       "Drama",
		Rating:      rating(8.5),
	}
}

func (e *testEnv) userCtx(t *testing.T, email string) context.Context {
	t.Helper()
	session, err := e.svc.ResolveSession(context.Background(), simplecatalog.Identity{Email: email})
	require.NoError(t, err)
	return simplecatalog.WithSession(context.Background(), session)
}

func TestServiceCreation(t *testing.T) {
	_, err := simplecatalog.New()
	assert.Error(t, err)

	_, err = simplecatalog.New(simplecatalog.WithRepository(memory.New()))
	assert.Error(t, err, "blob store is required")
}

func TestUploadAndCreateScenario(t *testing.T) {
	env := newTestEnv(t)

	data := pngBytes(2 * 1024 * 1024)
	uploaded, err := env.svc.UploadImage(env.admin, simplecatalog.UploadImageRequest{
		FileName:    "poster.png",
		ContentType: "image/png",
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^movie-posters/[0-9a-f-]{36}\.png$`, uploaded.Key)
	assert.True(t, env.blobs.Exists(uploaded.Key))

	req := validMovie("Heat")
	req.ImageKey = uploaded.Key
	movie, err := env.svc.CreateMovie(env.admin, req)
	require.NoError(t, err)

	assert.Equal(t, uploaded.Key, movie.ImageKey)
	assert.Contains(t, movie.ImageURL, "/objects/"+uploaded.Key)
	require.NotNil(t, movie.ImageURLExpiresAt)
	assert.Equal(t, testNow.Add(7*24*time.Hour), *movie.ImageURLExpiresAt)

	stored, err := env.repo.GetMovie(context.Background(), movie.ID)
	require.NoError(t, err)
	assert.Equal(t, movie.ImageURL, stored.ImageURL)
}

func TestCreateMovie_Authorization(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateMovie(env.user, validMovie("Alien"))
	assert.ErrorIs(t, err, simplecatalog.ErrForbidden)

	_, err = env.svc.CreateMovie(context.Background(), validMovie("Alien"))
	assert.ErrorIs(t, err, simplecatalog.ErrUnauthorized)

	movies, err := env.svc.ListMovies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestCreateMovie_SessionFlagIsNotTrusted(t *testing.T) {
	env := newTestEnv(t)
	session, ok := simplecatalog.SessionFromContext(env.user)
	require.True(t, ok)

	forged := *session
	forged.IsAdmin = true
	_, err := env.svc.CreateMovie(simplecatalog.WithSession(context.Background(), &forged), validMovie("Alien"))
	assert.ErrorIs(t, err, simplecatalog.ErrForbidden)
}

func TestCreateMovie_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*simplecatalog.CreateMovieRequest)
		field  string
	}{
		{"rating above ten", func(r *simplecatalog.CreateMovieRequest) { r.Rating = rating(10.5) }, "rating"},
		{"negative rating", func(r *simplecatalog.CreateMovieRequest) { r.Rating = rating(-1) }, "rating"},
		{"missing rating", func(r *simplecatalog.CreateMovieRequest) { r.Rating = nil }, "rating"},
		{"year before 1900", func(r *simplecatalog.CreateMovieRequest) { r.ReleaseYear = 1899 }, "releaseYear"},
		{"year too far ahead", func(r *simplecatalog.CreateMovieRequest) { r.ReleaseYear = testNow.Year() + 6 }, "releaseYear"},
		{"blank title", func(r *simplecatalog.CreateMovieRequest) { r.Title = "   " }, "title"},
		{"missing genre", func(r *simplecatalog.CreateMovieRequest) { r.Genre = "" }, "genre"},
		{"foreign image key", func(r *simplecatalog.CreateMovieRequest) { r.ImageKey = "avatars/x.png" }, "imageKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validMovie("Valid")
			tt.mutate(&req)

			_, err := env.svc.CreateMovie(env.admin, req)
			require.ErrorIs(t, err, simplecatalog.ErrInvalidInput)

			var verr *simplecatalog.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	movies, err := env.svc.ListMovies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, movies, "no record is created on validation failure")

	t.Run("boundaries accepted", func(t *testing.T) {
		req := validMovie("Edge")
		req.ReleaseYear = testNow.Year() + 5
		req.Rating = rating(0)
		_, err := env.svc.CreateMovie(env.admin, req)
		assert.NoError(t, err)

		req.ReleaseYear = 1900
		req.Rating = rating(10)
		_, err = env.svc.CreateMovie(env.admin, req)
		assert.NoError(t, err)
	})
}

func TestCustomImageKeyPrefix(t *testing.T) {
	env := newTestEnv(t, simplecatalog.WithImageKeyPrefix("posters"))

	data := pngBytes(512)
	uploaded, err := env.svc.UploadImage(env.admin, simplecatalog.UploadImageRequest{
		FileName: "poster.png", ContentType: "image/png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uploaded.Key, "posters/"), uploaded.Key)

	req := validMovie("Heat")
	req.ImageKey = uploaded.Key
	movie, err := env.svc.CreateMovie(env.admin, req)
	require.NoError(t, err)
	assert.Equal(t, uploaded.Key, movie.ImageKey)

	signed, err := env.svc.GetImageURL(context.Background(), uploaded.Key)
	require.NoError(t, err)
	assert.Contains(t, signed.URL, "/objects/"+uploaded.Key)

	_, err = env.svc.GetImageURL(context.Background(), posterKey)
	assert.ErrorIs(t, err, simplecatalog.ErrInvalidInput)

	_, err = env.svc.DeleteMovie(env.admin, movie.ID)
	require.NoError(t, err)
	assert.False(t, env.blobs.Exists(uploaded.Key))
}

func TestUpdateMovie_URLOnlyRecordKeepsObject(t *testing.T) {
	env := newTestEnv(t)

	data := pngBytes(512)
	uploaded, err := env.svc.UploadImage(env.admin, simplecatalog.UploadImageRequest{
		FileName: "legacy.png", ContentType: "image/png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	require.NoError(t, err)

	legacy := &simplecatalog.Movie{
		ID:          "legacy",
		Title:       "Alien",
		Description: "Imported record",
		ReleaseYear: 1979,
		Genre:       "Horror",
		Rating:      8.5,
		ImageURL:    uploaded.URL,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	require.NoError(t, env.repo.CreateMovie(context.Background(), legacy))

	update := simplecatalog.UpdateMovieRequest{ID: legacy.ID, CreateMovieRequest: validMovie("Alien")}
	update.ImageURL = uploaded.URL

	updated, err := env.svc.UpdateMovie(env.admin, update)
	require.NoError(t, err)
	assert.Equal(t, uploaded.Key, updated.ImageKey)
	assert.True(t, env.blobs.Exists(uploaded.Key))
}

func TestUpdateMovie(t *testing.T) {
	env := newTestEnv(t)

	upload := func(name string) *simplecatalog.UploadedImage {
		data := pngBytes(512)
		img, err := env.svc.UploadImage(env.admin, simplecatalog.UploadImageRequest{
			FileName: name, ContentType: "image/png", Size: int64(len(data)), Reader: bytes.NewReader(data),
		})
		require.NoError(t, err)
		return img
	}

	first := upload("first.png")
	req := validMovie("Ran")
	req.ImageKey = first.Key
	movie, err := env.svc.CreateMovie(env.admin, req)
	require.NoError(t, err)

	t.Run("same key keeps cached url", func(t *testing.T) {
		update := simplecatalog.UpdateMovieRequest{ID: movie.ID, CreateMovieRequest: validMovie("Ran (1985)")}
		update.ImageKey = first.Key

		updated, err := env.svc.UpdateMovie(env.admin, update)
		require.NoError(t, err)
		assert.Equal(t, "Ran (1985)", updated.Title)
		assert.Equal(t, movie.ImageURL, updated.ImageURL)
		assert.True(t, env.blobs.Exists(first.Key))
	})

	t.Run("new image deletes old object", func(t *testing.T) {
		second := upload("second.png")
		update := simplecatalog.UpdateMovieRequest{ID: movie.ID, CreateMovieRequest: validMovie("Ran")}
		update.ImageURL = second.URL

		updated, err := env.svc.UpdateMovie(env.admin, update)
		require.NoError(t, err)
		assert.Equal(t, second.Key, updated.ImageKey)
		assert.Contains(t, updated.ImageURL, second.Key)
		assert.False(t, env.blobs.Exists(first.Key))
		assert.True(t, env.blobs.Exists(second.Key))
	})

	t.Run("missing old object does not block update", func(t *testing.T) {
		current, err := env.repo.GetMovie(context.Background(), movie.ID)
		require.NoError(t, err)
		require.NoError(t, env.blobs.Delete(context.Background(), current.ImageKey))

		third := upload("third.png")
		update := simplecatalog.UpdateMovieRequest{ID: movie.ID, CreateMovieRequest: validMovie("Ran")}
		update.ImageKey = third.Key

		updated, err := env.svc.UpdateMovie(env.admin, update)
		require.NoError(t, err)
		assert.Equal(t, third.Key, updated.ImageKey)
	})

	t.Run("clearing the image empties the url", func(t *testing.T) {
		update := simplecatalog.UpdateMovieRequest{ID: movie.ID, CreateMovieRequest: validMovie("Ran")}
		updated, err := env.svc.UpdateMovie(env.admin, update)
		require.NoError(t, err)
		assert.Empty(t, updated.ImageKey)
		assert.Empty(t, updated.ImageURL)
		assert.Nil(t, updated.ImageURLExpiresAt)
	})

	t.Run("invalid update leaves record unchanged", func(t *testing.T) {
		update := simplecatalog.UpdateMovieRequest{ID: movie.ID, CreateMovieRequest: validMovie("Changed")}
		update.Rating = rating(11)
		_, err := env.svc.UpdateMovie(env.admin, update)
		assert.ErrorIs(t, err, simplecatalog.ErrInvalidInput)

		stored, err := env.repo.GetMovie(context.Background(), movie.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ran", stored.Title)
	})

	t.Run("unknown movie", func(t *testing.T) {
		update := simplecatalog.UpdateMovieRequest{ID: "missing", CreateMovieRequest: validMovie("Ghost")}
		_, err := env.svc.UpdateMovie(env.admin, update)
		assert.ErrorIs(t, err, simplecatalog.ErrNotFound)
	})
}

func TestDeleteMovie_CascadesWishlist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data := pngBytes(256)
	img, err := env.svc.UploadImage(env.admin, simplecatalog.UploadImageRequest{
		FileName: "p.png", ContentType: "image/png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	require.NoError(t, err)

	req := validMovie("Brazil")
	req.ImageKey = img.Key
	movie, err := env.svc.CreateMovie(env.admin, req)
	require.NoError(t, err)
	other, err := env.svc.CreateMovie(env.admin, validMovie("Other"))
	require.NoError(t, err)

	const n = 3
	for i := 0; i < n; i++ {
		userCtx := env.userCtx(t, "fan"+string(rune('a'+i))+"@example.com")
		_, err := env.svc.AddToWishlist(userCtx, movie.ID)
		require.NoError(t, err)
	}
	_, err = env.svc.AddToWishlist(env.user, other.ID)
	require.NoError(t, err)

	result, err := env.svc.DeleteMovie(env.admin, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), result.WishlistItemsDeleted)
	assert.False(t, env.blobs.Exists(img.Key))

	remaining, err := env.repo.CountWishlistEntries(ctx, simplecatalog.WishlistFilter{MovieID: movie.ID})
	require.NoError(t, err)
	assert.Zero(t, remaining)

	others, err := env.repo.CountWishlistEntries(ctx, simplecatalog.WishlistFilter{MovieID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), others)

	_, err = env.svc.DeleteMovie(env.admin, movie.ID)
	assert.ErrorIs(t, err, simplecatalog.ErrNotFound)

	_, err = env.svc.DeleteMovie(env.user, other.ID)
	assert.ErrorIs(t, err, simplecatalog.ErrForbidden)
}

func TestWishlist_DuplicateAdd(t *testing.T) {
	env := newTestEnv(t)
	movie, err := env.svc.CreateMovie(env.admin, validMovie("Solaris"))
	require.NoError(t, err)

	_, err = env.svc.AddToWishlist(env.user, movie.ID)
	require.NoError(t, err)

	_, err = env.svc.AddToWishlist(env.user, movie.ID)
	assert.ErrorIs(t, err, simplecatalog.ErrAlreadyExists)

	items, err := env.svc.ListWishlist(env.user)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWishlist_AddValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AddToWishlist(env.user, "")
	assert.ErrorIs(t, err, simplecatalog.ErrInvalidInput)

	_, err = env.svc.AddToWishlist(env.user, "missing")
	assert.ErrorIs(t, err, simplecatalog.ErrNotFound)

	_, err = env.svc.AddToWishlist(context.Background(), "missing")
	assert.ErrorIs(t, err, simplecatalog.ErrUnauthorized)
}

func TestWishlist_Remove(t *testing.T) {
	env := newTestEnv(t)
	movie, err := env.svc.CreateMovie(env.admin, validMovie("Stalker"))
	require.NoError(t, err)

	_, err = env.svc.AddToWishlist(env.user, movie.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.RemoveFromWishlist(env.user, movie.ID))
	assert.ErrorIs(t, env.svc.RemoveFromWishlist(env.user, movie.ID), simplecatalog.ErrNotFound)
}

func TestWishlist_ConcurrentAdds(t *testing.T) {
	env := newTestEnv(t)
	movie, err := env.svc.CreateMovie(env.admin, validMovie("Paprika"))
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.AddToWishlist(env.user, movie.ID)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, simplecatalog.ErrAlreadyExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

// racyRepository hides existing rows from the pre-check, as a concurrent
// request would see them before the other insert lands.
type racyRepository struct {
	*memory.Repository
}

func (r racyRepository) FindWishlistEntry(ctx context.Context, userID, movieID string) (*simplecatalog.WishlistEntry, error) {
	return nil, simplecatalog.ErrNotFound
}

func TestWishlist_StoreConstraintIsAuthoritative(t *testing.T) {
	repo := racyRepository{memory.New()}
	svc, err := simplecatalog.New(
		simplecatalog.WithRepository(repo),
		simplecatalog.WithBlobStore(memorystorage.New(presigned.New(presigned.WithSecretKey("s")), "")),
		simplecatalog.WithAdminEmails("admin@example.com"),
	)
	require.NoError(t, err)

	ctx := context.Background()
	admin, err := svc.ResolveSession(ctx, simplecatalog.Identity{Email: "admin@example.com"})
	require.NoError(t, err)
	adminCtx := simplecatalog.WithSession(ctx, admin)

	movie, err := svc.CreateMovie(adminCtx, validMovie("Akira"))
	require.NoError(t, err)

	_, err = svc.AddToWishlist(adminCtx, movie.ID)
	require.NoError(t, err)
	_, err = svc.AddToWishlist(adminCtx, movie.ID)
	assert.ErrorIs(t, err, simplecatalog.ErrAlreadyExists)

	count, err := repo.CountWishlistEntries(ctx, simplecatalog.WishlistFilter{UserID: admin.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWishlist_OrphansSelfHeal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kept, err := env.svc.CreateMovie(env.admin, validMovie("Kept"))
	require.NoError(t, err)
	gone, err := env.svc.CreateMovie(env.admin, validMovie("Gone"))
	require.NoError(t, err)

	_, err = env.svc.AddToWishlist(env.user, kept.ID)
	require.NoError(t, err)
	_, err = env.svc.AddToWishlist(env.user, gone.ID)
	require.NoError(t, err)

	session, _ := simplecatalog.SessionFromContext(env.user)
	filter := simplecatalog.WishlistFilter{UserID: session.UserID}
	before, err := env.repo.CountWishlistEntries(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, int64(2), before)

	// Bypass the cascade.
	require.NoError(t, env.repo.DeleteMovie(ctx, gone.ID))

	items, err := env.svc.ListWishlist(env.user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].Movie.ID)

	after, err := env.repo.CountWishlistEntries(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, before-1, after)

	again, err := env.svc.ListWishlist(env.user)
	require.NoError(t, err)
	assert.Len(t, again, 1)
	final, err := env.repo.CountWishlistEntries(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, after, final)
}

func TestWishlist_AdminAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	movie, err := env.svc.CreateMovie(env.admin, validMovie("Vertigo"))
	require.NoError(t, err)
	other, err := env.svc.CreateMovie(env.admin, validMovie("Psycho"))
	require.NoError(t, err)

	_, err = env.svc.AddToWishlist(env.user, movie.ID)
	require.NoError(t, err)
	_, err = env.svc.AddToWishlist(env.admin, movie.ID)
	require.NoError(t, err)
	_, err = env.svc.AddToWishlist(env.user, other.ID)
	require.NoError(t, err)

	entries, err := env.svc.ListWishlistsByMovie(env.admin, movie.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "Vertigo", e.MovieTitle)
		assert.NotEmpty(t, e.UserEmail)
	}

	count, err := env.svc.CountWishlistsByMovie(env.admin, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := env.svc.ListWishlistsByMovie(env.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Read-only: orphans are skipped but not purged.
	require.NoError(t, env.repo.DeleteMovie(ctx, other.ID))
	all, err = env.svc.ListWishlistsByMovie(env.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	total, err := env.repo.CountWishlistEntries(ctx, simplecatalog.WishlistFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, err = env.svc.ListWishlistsByMovie(env.user, movie.ID)
	assert.ErrorIs(t, err, simplecatalog.ErrForbidden)
}

func TestListMovies_RefreshesExpiredURLs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data := pngBytes(128)
	img, err := env.svc.UploadImage(env.admin, simplecatalog.UploadImageRequest{
		FileName: "p.png", ContentType: "image/png", Size: int64(len(data)), Reader: bytes.NewReader(data),
	})
	require.NoError(t, err)

	req := validMovie("Metropolis")
	req.ImageKey = img.Key
	movie, err := env.svc.CreateMovie(env.admin, req)
	require.NoError(t, err)

	stale := testNow.Add(-time.Hour)
	stored, err := env.repo.GetMovie(ctx, movie.ID)
	require.NoError(t, err)
	stored.ImageURL = "http://localhost:8080/objects/" + img.Key + "?signature=old&expires=1"
	stored.ImageURLExpiresAt = &stale
	require.NoError(t, env.repo.UpdateMovie(ctx, stored))

	movies, err := env.svc.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.NotContains(t, movies[0].ImageURL, "signature=old")
	require.NotNil(t, movies[0].ImageURLExpiresAt)
	assert.True(t, movies[0].ImageURLExpiresAt.After(testNow))

	got, err := env.svc.GetMovie(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, movies[0].ImageURL, got.ImageURL)
}

func TestGetImageURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	signed, err := env.svc.GetImageURL(ctx, posterKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.URL, "http://localhost:8080/objects/"+posterKey+"?"))
	assert.Equal(t, testNow.Add(7*24*time.Hour), signed.ExpiresAt)

	_, err = env.svc.GetImageURL(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, simplecatalog.ErrInvalidInput)
	_, err = env.svc.GetImageURL(ctx, "")
	assert.ErrorIs(t, err, simplecatalog.ErrInvalidInput)
}

func TestResolveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.ResolveSession(ctx, simplecatalog.Identity{Email: "New@Example.com", Name: "New", Image: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", first.Email)
	assert.False(t, first.IsAdmin)

	second, err := env.svc.ResolveSession(ctx, simplecatalog.Identity{Email: "new@example.com", Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, "Renamed", second.Name)
	assert.Equal(t, "a.png", second.Image)

	admin, err := env.svc.ResolveSession(ctx, simplecatalog.Identity{Email: "admin@example.com"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	_, err = env.svc.ResolveSession(ctx, simplecatalog.Identity{})
	assert.ErrorIs(t, err, simplecatalog.ErrUnauthorized)
}

func TestAllowListChangesApplyLive(t *testing.T) {
	repo := memory.New()
	blobs := memorystorage.New(presigned.New(presigned.WithSecretKey("s")), "")
	ctx := context.Background()

	before, err := simplecatalog.New(simplecatalog.WithRepository(repo), simplecatalog.WithBlobStore(blobs),
		simplecatalog.WithAdminEmails("boss@example.com"))
	require.NoError(t, err)
	session, err := before.ResolveSession(ctx, simplecatalog.Identity{Email: "boss@example.com"})
	require.NoError(t, err)
	require.True(t, session.IsAdmin)

	// Same user, allow-list no longer contains them.
	after, err := simplecatalog.New(simplecatalog.WithRepository(repo), simplecatalog.WithBlobStore(blobs),
		simplecatalog.WithAdminEmails("other@example.com"))
	require.NoError(t, err)

	_, err = after.CreateMovie(simplecatalog.WithSession(ctx, session), validMovie("Too late"))
	assert.ErrorIs(t, err, simplecatalog.ErrForbidden)

	resolved, err := after.ResolveSession(ctx, simplecatalog.Identity{Email: "boss@example.com"})
	require.NoError(t, err)
	assert.False(t, resolved.IsAdmin)

	user, err := repo.GetUserByEmail(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin, "persisted snapshot follows the allow-list")
}

func TestSyncAdminStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.repo.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, env.repo.UpdateUser(ctx, user))

	result, err := env.svc.SyncAdminStatus(env.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Promoted)
	assert.Equal(t, int64(1), result.Demoted)
	assert.Equal(t, []string{"admin@example.com"}, result.AdminEmails)

	_, err = env.svc.SyncAdminStatus(env.user)
	assert.ErrorIs(t, err, simplecatalog.ErrForbidden)

	noAdmins := newTestEnv(t, simplecatalog.WithAdminEmails())
	_, err = noAdmins.svc.SyncAdminStatus(noAdmins.user)
	assert.ErrorIs(t, err, simplecatalog.ErrInvalidInput)
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.svc.Ping(context.Background()))
}
