package simplecatalog

import "io"

// CreateMovieRequest contains parameters for creating a movie.
// Rating is a pointer so that an explicit 0 can be told apart from a missing value.
type CreateMovieRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=5000"`
	ReleaseYear int      `json:"releaseYear" validate:"required,releaseyear"`
	Genre       string   `json:"genre" validate:"required,max=100"`
	Rating      *float64 `json:"rating" validate:"required,gte=0,lte=10"`

	// ImageKey references an already uploaded poster. ImageURL is accepted
	// for clients that only kept the access URL; the key is recovered from it.
	ImageKey string `json:"imageKey,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// UpdateMovieRequest replaces the editable fields of a movie.
type UpdateMovieRequest struct {
	ID string `json:"-" validate:"required"`
	CreateMovieRequest
}

// UploadImageRequest contains parameters for storing a poster image
type UploadImageRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// PresignImageUploadRequest asks for a direct-upload URL
type PresignImageUploadRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
}

// AddWishlistRequest is the body of a wishlist add.
type AddWishlistRequest struct {
	MovieID string `json:"movieId" validate:"required"`
}
