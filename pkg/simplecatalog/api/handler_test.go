package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/presigned"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 512)...)

type testServer struct {
	router    http.Handler
	tokenAuth *jwtauth.JWTAuth
	repo      *memory.Repository
	blobs     *memorystorage.Backend
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return testNow }
	signer := presigned.New(presigned.WithSecretKey("object-secret"), presigned.WithClock(clock))
	blobs := memorystorage.New(signer, "")
	repo := memory.New()

	svc, err := simplecatalog.New(
		simplecatalog.WithRepository(repo),
		simplecatalog.WithBlobStore(blobs),
		simplecatalog.WithAdminEmails("admin@example.com"),
		simplecatalog.WithClock(clock),
	)
	require.NoError(t, err)

	tokenAuth := NewTokenAuth("session-secret")
	router := NewRouter(RouterConfig{
		Service:   svc,
		TokenAuth: tokenAuth,
		Objects:   NewObjectHandler(blobs, signer, 5<<20),
	})
	return &testServer{router: router, tokenAuth: tokenAuth, repo: repo, blobs: blobs}
}

func (s *testServer) token(t *testing.T, email string) string {
	t.Helper()
	token, err := EncodeSessionToken(s.tokenAuth, simplecatalog.Identity{Email: email, Name: strings.Split(email, "@")[0]}, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) upload(t *testing.T, token, fileName, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func movieBodyFor(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"description": "About " + title,
		"releaseYear": 2001,
		"genre":       "Sci-Fi",
		"rating":      8.1,
	}
}

func (s *testServer) createMovie(t *testing.T, token string, body map[string]interface{}) simplecatalog.Movie {
	t.Helper()
	rr := s.do(t, "POST", "/api/movies", token, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var movie simplecatalog.Movie
	decodeBody(t, rr, &movie)
	return movie
}

func TestUploadCreateAndServePoster(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")

	rr := s.upload(t, admin, "poster.png", "image/png", pngData)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var uploaded struct {
		ImageKey  string    `json:"imageKey"`
		ImageURL  string    `json:"imageUrl"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	decodeBody(t, rr, &uploaded)
	assert.True(t, strings.HasPrefix(uploaded.ImageKey, "movie-posters/"))
	assert.True(t, strings.HasSuffix(uploaded.ImageKey, ".png"))
	assert.Equal(t, testNow.Add(7*24*time.Hour), uploaded.ExpiresAt.UTC())

	body := movieBodyFor("Signal")
	body["imageKey"] = uploaded.ImageKey
	movie := s.createMovie(t, admin, body)
	assert.Equal(t, uploaded.ImageKey, movie.ImageKey)
	require.NotEmpty(t, movie.ImageURL)

	rr = s.do(t, "GET", movie.ImageURL, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, pngData, rr.Body.Bytes())

	rr = s.do(t, "GET", "/api/movies", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var movies []simplecatalog.Movie
	decodeBody(t, rr, &movies)
	require.Len(t, movies, 1)
	assert.Equal(t, "Signal", movies[0].Title)
	assert.NotEmpty(t, movies[0].ImageURL)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")

	rr := s.upload(t, admin, "anim.gif", "image/gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "Invalid file type. Only JPEG, PNG, and WebP are allowed.", resp.Error)

	big := append([]byte(nil), pngData...)
	big = append(big, make([]byte, 5<<20)...)
	rr = s.upload(t, admin, "big.png", "image/png", big)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	decodeBody(t, rr, &resp)
	assert.Equal(t, "File too large. Maximum size is 5MB.", resp.Error)

	rr = s.upload(t, s.token(t, "user@example.com"), "poster.png", "image/png", pngData)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMovieAuthorization(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "POST", "/api/movies", "", movieBodyFor("Anon"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "POST", "/api/movies", s.token(t, "user@example.com"), movieBodyFor("User"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "Admin access required", resp.Error)

	rr = s.do(t, "POST", "/api/movies", "not-a-token", movieBodyFor("Forged"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	other := NewTokenAuth("other-secret")
	forged, err := EncodeSessionToken(other, simplecatalog.Identity{Email: "admin@example.com"}, time.Hour)
	require.NoError(t, err)
	rr = s.do(t, "POST", "/api/movies", forged, movieBodyFor("Forged"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMovieValidation(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")

	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		status  int
		message string
	}{
		{name: "rating above range", mutate: func(b map[string]interface{}) { b["rating"] = 11 }, status: http.StatusBadRequest, message: "rating must be between 0 and 10"},
		{name: "year too early", mutate: func(b map[string]interface{}) { b["releaseYear"] = 1899 }, status: http.StatusBadRequest, message: "releaseYear must be between 1900"},
		{name: "missing title", mutate: func(b map[string]interface{}) { delete(b, "title") }, status: http.StatusBadRequest, message: "title is required"},
		{name: "numeric strings", mutate: func(b map[string]interface{}) { b["releaseYear"] = "2010"; b["rating"] = "7.5" }, status: http.StatusCreated},
		{name: "zero rating", mutate: func(b map[string]interface{}) { b["rating"] = 0 }, status: http.StatusCreated},
		{name: "fractional year", mutate: func(b map[string]interface{}) { b["releaseYear"] = 2010.5 }, status: http.StatusBadRequest, message: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := movieBodyFor("Case")
			tt.mutate(body)
			rr := s.do(t, "POST", "/api/movies", admin, body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.message != "" {
				var resp ErrorResponse
				decodeBody(t, rr, &resp)
				assert.Contains(t, resp.Error, tt.message)
			}
		})
	}
}

func TestMovieUpdateAndGet(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")
	movie := s.createMovie(t, admin, movieBodyFor("Draft"))

	body := movieBodyFor("Final")
	body["rating"] = 9.2
	rr := s.do(t, "PUT", "/api/movies/"+movie.ID, admin, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, "GET", "/api/movies/"+movie.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got simplecatalog.Movie
	decodeBody(t, rr, &got)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, 9.2, got.Rating)

	rr = s.do(t, "GET", "/api/movies/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "Movie not found", resp.Error)

	rr = s.do(t, "PUT", "/api/movies/missing", admin, body)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWishlistFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")
	user := s.token(t, "user@example.com")
	movie := s.createMovie(t, admin, movieBodyFor("Wanted"))

	rr := s.do(t, "POST", "/api/wishlist", user, map[string]string{"movieId": movie.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/wishlist", user, map[string]string{"movieId": movie.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	assert.Equal(t, "Movie already in wishlist", resp.Error)

	rr = s.do(t, "POST", "/api/wishlist", user, map[string]string{"movieId": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "POST", "/api/wishlist", user, map[string]string{"movieId": "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "GET", "/api/wishlist", user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var items []WishlistItemResponse
	decodeBody(t, rr, &items)
	require.Len(t, items, 1)
	assert.Equal(t, movie.ID, items[0].MovieID)
	require.NotNil(t, items[0].Movie)
	assert.Equal(t, "Wanted", items[0].Movie.Title)

	rr = s.do(t, "DELETE", "/api/wishlist/"+movie.ID, user, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, "DELETE", "/api/wishlist", user, map[string]string{"movieId": movie.ID})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	decodeBody(t, rr, &resp)
	assert.Equal(t, "Movie not found in wishlist", resp.Error)

	rr = s.do(t, "GET", "/api/wishlist", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDeleteMovieCascadesAndReports(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")
	movie := s.createMovie(t, admin, movieBodyFor("Doomed"))

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		rr := s.do(t, "POST", "/api/wishlist", s.token(t, email), map[string]string{"movieId": movie.ID})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := s.do(t, "GET", "/api/admin/wishlists?movieId="+movie.ID, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var report AdminWishlistsResponse
	decodeBody(t, rr, &report)
	assert.Equal(t, int64(3), report.Count)
	require.Len(t, report.Wishlists, 3)
	assert.Equal(t, "Doomed", report.Wishlists[0].MovieTitle)
	assert.NotEmpty(t, report.Wishlists[0].UserEmail)

	rr = s.do(t, "GET", "/api/admin/wishlists", s.token(t, "a@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, "DELETE", "/api/movies/"+movie.ID, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var deleted DeleteMovieResponse
	decodeBody(t, rr, &deleted)
	assert.Equal(t, int64(3), deleted.WishlistItemsDeleted)

	rr = s.do(t, "DELETE", "/api/movies/"+movie.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestImageURLEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "GET", "/api/images/movie-posters/abc.png", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp ImageURLResponse
	decodeBody(t, rr, &resp)
	assert.Contains(t, resp.ImageURL, "/objects/movie-posters/abc.png?")
	assert.Equal(t, testNow.Add(7*24*time.Hour), resp.ExpiresAt.UTC())

	rr = s.do(t, "GET", "/api/images/movie-posters%2Fabc.png", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, "GET", "/api/images/secrets/abc.png", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPresignedDirectUpload(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin@example.com")

	rr := s.do(t, "POST", "/api/upload/presign", admin, map[string]string{"fileName": "p.webp", "contentType": "image/webp"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var upload simplecatalog.PresignedUpload
	decodeBody(t, rr, &upload)
	assert.Equal(t, testNow.Add(time.Hour), upload.ExpiresAt.UTC())

	req := httptest.NewRequest("PUT", upload.URL, bytes.NewReader(pngData))
	req.Header.Set("Content-Type", "image/webp")
	put := httptest.NewRecorder()
	s.router.ServeHTTP(put, req)
	require.Equal(t, http.StatusOK, put.Code, put.Body.String())
	assert.True(t, s.blobs.Exists(upload.Key))

	rr = s.do(t, "GET", "/objects/"+upload.Key, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionAndAdminSync(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, "GET", "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "GET", "/api/session", s.token(t, "Admin@Example.com"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var session simplecatalog.Session
	decodeBody(t, rr, &session)
	assert.Equal(t, "admin@example.com", session.Email)
	assert.True(t, session.IsAdmin)

	req := httptest.NewRequest("GET", "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: s.token(t, "user@example.com")})
	cookie := httptest.NewRecorder()
	s.router.ServeHTTP(cookie, req)
	require.Equal(t, http.StatusOK, cookie.Code)
	decodeBody(t, cookie, &session)
	assert.False(t, session.IsAdmin)

	rr = s.do(t, "POST", "/api/admin/update-admin-status", s.token(t, "admin@example.com"), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var sync map[string]interface{}
	decodeBody(t, rr, &sync)
	assert.Equal(t, "Admin status updated successfully", sync["message"])
	assert.Equal(t, []interface{}{"admin@example.com"}, sync["adminEmails"])

	rr = s.do(t, "POST", "/api/admin/update-admin-status", s.token(t, "user@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/healthz/ready", "/healthz/store"} {
		rr := s.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}
