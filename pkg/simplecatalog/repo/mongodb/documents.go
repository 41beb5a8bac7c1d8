package mongodb

import (
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

type movieDocument struct {
	ID                string     `bson:"_id"`
	Title             string     `bson:"title"`
	Description       string     `bson:"description"`
	ReleaseYear       int        `bson:"releaseYear"`
	Genre             string     `bson:"genre"`
	Rating            float64    `bson:"rating"`
	ImageKey          string     `bson:"imageKey,omitempty"`
	ImageURL          string     `bson:"imageUrl,omitempty"`
	ImageURLExpiresAt *time.Time `bson:"imageUrlExpiresAt,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
}

func toMovieDocument(m *simplecatalog.Movie) movieDocument {
	return movieDocument{
		ID:                m.ID,
		Title:             m.Title,
		Description:       m.Description,
		ReleaseYear:       m.ReleaseYear,
		Genre:             m.Genre,
		Rating:            m.Rating,
		ImageKey:          m.ImageKey,
		ImageURL:          m.ImageURL,
		ImageURLExpiresAt: m.ImageURLExpiresAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (d movieDocument) toMovie() *simplecatalog.Movie {
	return &simplecatalog.Movie{
		ID:                d.ID,
		Title:             d.Title,
		Description:       d.Description,
		ReleaseYear:       d.ReleaseYear,
		Genre:             d.Genre,
		Rating:            d.Rating,
		ImageKey:          d.ImageKey,
		ImageURL:          d.ImageURL,
		ImageURLExpiresAt: d.ImageURLExpiresAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type wishlistDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	MovieID   string    `bson:"movieId"`
	CreatedAt time.Time `bson:"createdAt"`
}

func toWishlistDocument(e *simplecatalog.WishlistEntry) wishlistDocument {
	return wishlistDocument{ID: e.ID, UserID: e.UserID, MovieID: e.MovieID, CreatedAt: e.CreatedAt}
}

func (d wishlistDocument) toEntry() *simplecatalog.WishlistEntry {
	return &simplecatalog.WishlistEntry{ID: d.ID, UserID: d.UserID, MovieID: d.MovieID, CreatedAt: d.CreatedAt}
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Name      string    `bson:"name"`
	Image     string    `bson:"image,omitempty"`
	IsAdmin   bool      `bson:"isAdmin"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toUserDocument(u *simplecatalog.User) userDocument {
	return userDocument{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Image:     u.Image,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d userDocument) toUser() *simplecatalog.User {
	return &simplecatalog.User{
		ID:        d.ID,
		Email:     d.Email,
		Name:      d.Name,
		Image:     d.Image,
		IsAdmin:   d.IsAdmin,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
