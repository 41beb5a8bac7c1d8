package simplecatalog

import "time"

// Movie is a catalog record.
type Movie struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ReleaseYear int     `json:"releaseYear"`
	Genre       string  `json:"genre"`
	Rating      float64 `json:"rating"`

	// ImageKey is the object key of the poster. ImageURL and ImageURLExpiresAt
	// cache the last signed access URL and are empty whenever ImageKey is.
	ImageKey          string     `json:"imageKey,omitempty"`
	ImageURL          string     `json:"imageUrl,omitempty"`
	ImageURLExpiresAt *time.Time `json:"imageUrlExpiresAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasImage reports whether the movie references a stored poster.
func (m *Movie) HasImage() bool {
	return m.ImageKey != ""
}

// WishlistEntry links a user to a movie. The (UserID, MovieID) pair is unique.
type WishlistEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MovieID   string    `json:"movieId"`
	CreatedAt time.Time `json:"createdAt"`
}

// WishlistItem is a wishlist entry joined with its movie. Movie is never nil.
type WishlistItem struct {
	Entry *WishlistEntry
	Movie *Movie
}

// WishlistAdminEntry is a wishlist entry joined for administrative reporting.
type WishlistAdminEntry struct {
	Entry      *WishlistEntry
	UserName   string
	UserEmail  string
	MovieTitle string
}

// User is a signed-in account. IsAdmin is a snapshot of the allow-list taken
// at the last session resolution; authorization never reads it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the verified profile handed over by the identity provider.
type Identity struct {
	Email string
	Name  string
	Image string
}

// Session is the per-request view of the signed-in user.
type Session struct {
	UserID  string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// SignedURL is a time-limited access URL for one object.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadedImage is the result of storing a poster.
type UploadedImage struct {
	Key       string    `json:"imageKey"`
	URL       string    `json:"imageUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PresignedUpload lets a client PUT a poster directly to the object store.
type PresignedUpload struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DeleteMovieResult reports the side effects of a movie deletion.
type DeleteMovieResult struct {
	MovieID              string `json:"movieId"`
	WishlistItemsDeleted int64  `json:"wishlistItemsDeleted"`
}

// AdminSyncResult reports how many persisted admin snapshots changed.
type AdminSyncResult struct {
	Promoted    int64    `json:"updatedUsers"`
	Demoted     int64    `json:"demotedUsers"`
	AdminEmails []string `json:"adminEmails"`
}
