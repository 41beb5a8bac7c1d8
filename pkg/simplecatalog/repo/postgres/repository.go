package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplecatalog.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// Ping verifies the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	if r.pool != nil {
		return r.pool.Ping(ctx)
	}
	var one int
	return r.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// Close releases the pool when the repository owns one
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return simplecatalog.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %s: %w", operation, pgErr.ConstraintName, simplecatalog.ErrAlreadyExists)
		case "23514": // check_violation
			return fmt.Errorf("%s: %s: %w", operation, pgErr.ConstraintName, simplecatalog.ErrInvalidInput)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Movie operations

const movieColumns = `id, title, description, release_year, genre, rating,
	image_key, image_url, image_url_expires_at, created_at, updated_at`

func scanMovie(row pgx.Row) (*simplecatalog.Movie, error) {
	var m simplecatalog.Movie
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.ReleaseYear, &m.Genre, &m.Rating,
		&m.ImageKey, &m.ImageURL, &m.ImageURLExpiresAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMovies(rows pgx.Rows) ([]*simplecatalog.Movie, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*simplecatalog.Movie, error) {
		return scanMovie(row)
	})
}

func (r *Repository) CreateMovie(ctx context.Context, movie *simplecatalog.Movie) error {
	query := `
		INSERT INTO movies (` + movieColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		movie.ID, movie.Title, movie.Description, movie.ReleaseYear, movie.Genre, movie.Rating,
		movie.ImageKey, movie.ImageURL, movie.ImageURLExpiresAt, movie.CreatedAt, movie.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create movie", err)
	}
	return nil
}

func (r *Repository) GetMovie(ctx context.Context, id string) (*simplecatalog.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE id = $1`

	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get movie", err)
	}
	return movie, nil
}

func (r *Repository) GetMoviesByIDs(ctx context.Context, ids []string) (map[string]*simplecatalog.Movie, error) {
	result := make(map[string]*simplecatalog.Movie, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, r.handlePostgresError("get movies by ids", err)
	}
	movies, err := collectMovies(rows)
	if err != nil {
		return nil, r.handlePostgresError("get movies by ids", err)
	}
	for _, m := range movies {
		result[m.ID] = m
	}
	return result, nil
}

func (r *Repository) ListMovies(ctx context.Context) ([]*simplecatalog.Movie, error) {
	rows, err := r.db.Query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY created_at DESC`)
	if err != nil {
		return nil, r.handlePostgresError("list movies", err)
	}
	movies, err := collectMovies(rows)
	if err != nil {
		return nil, r.handlePostgresError("list movies", err)
	}
	return movies, nil
}

func (r *Repository) UpdateMovie(ctx context.Context, movie *simplecatalog.Movie) error {
	query := `
		UPDATE movies SET
			title = $2, description = $3, release_year = $4, genre = $5, rating = $6,
			image_key = $7, image_url = $8, image_url_expires_at = $9, updated_at = $10
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		movie.ID, movie.Title, movie.Description, movie.ReleaseYear, movie.Genre, movie.Rating,
		movie.ImageKey, movie.ImageURL, movie.ImageURLExpiresAt, movie.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update movie", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteMovie(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete movie", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

// Wishlist operations

const wishlistColumns = `id, user_id, movie_id, created_at`

func scanWishlistEntry(row pgx.Row) (*simplecatalog.WishlistEntry, error) {
	var e simplecatalog.WishlistEntry
	if err := row.Scan(&e.ID, &e.UserID, &e.MovieID, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// wishlistWhere builds the WHERE clause for a filter. Empty fields are ignored.
func wishlistWhere(filter simplecatalog.WishlistFilter) (string, []interface{}) {
	return `WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR movie_id = $2)`,
		[]interface{}{filter.UserID, filter.MovieID}
}

func (r *Repository) CreateWishlistEntry(ctx context.Context, entry *simplecatalog.WishlistEntry) error {
	query := `INSERT INTO wishlist_items (` + wishlistColumns + `) VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, entry.ID, entry.UserID, entry.MovieID, entry.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create wishlist entry", err)
	}
	return nil
}

func (r *Repository) FindWishlistEntry(ctx context.Context, userID, movieID string) (*simplecatalog.WishlistEntry, error) {
	query := `SELECT ` + wishlistColumns + ` FROM wishlist_items WHERE user_id = $1 AND movie_id = $2`

	entry, err := scanWishlistEntry(r.db.QueryRow(ctx, query, userID, movieID))
	if err != nil {
		return nil, r.handlePostgresError("find wishlist entry", err)
	}
	return entry, nil
}

func (r *Repository) ListWishlistEntries(ctx context.Context, filter simplecatalog.WishlistFilter) ([]*simplecatalog.WishlistEntry, error) {
	where, args := wishlistWhere(filter)
	query := `SELECT ` + wishlistColumns + ` FROM wishlist_items ` + where + ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list wishlist entries", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*simplecatalog.WishlistEntry, error) {
		return scanWishlistEntry(row)
	})
	if err != nil {
		return nil, r.handlePostgresError("list wishlist entries", err)
	}
	return entries, nil
}

func (r *Repository) CountWishlistEntries(ctx context.Context, filter simplecatalog.WishlistFilter) (int64, error) {
	where, args := wishlistWhere(filter)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wishlist_items `+where, args...).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count wishlist entries", err)
	}
	return count, nil
}

func (r *Repository) DeleteWishlistEntry(ctx context.Context, userID, movieID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return 0, r.handlePostgresError("delete wishlist entry", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) DeleteWishlistEntriesByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, r.handlePostgresError("delete wishlist entries", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) DeleteWishlistEntriesByMovie(ctx context.Context, movieID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE movie_id = $1`, movieID)
	if err != nil {
		return 0, r.handlePostgresError("delete wishlist entries by movie", err)
	}
	return tag.RowsAffected(), nil
}

// User operations

const userColumns = `id, email, name, image, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*simplecatalog.User, error) {
	var u simplecatalog.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Image, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *simplecatalog.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.Image, user.IsAdmin, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create user", err)
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simplecatalog.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, r.handlePostgresError("get user", err)
	}
	return user, nil
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*simplecatalog.User, error) {
	result := make(map[string]*simplecatalog.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, r.handlePostgresError("get users by ids", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*simplecatalog.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, r.handlePostgresError("get users by ids", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *simplecatalog.User) error {
	query := `
		UPDATE users SET email = $2, name = $3, image = $4, is_admin = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, user.ID, user.Email, user.Name, user.Image, user.IsAdmin, user.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

func (r *Repository) SetAdminSnapshot(ctx context.Context, adminEmails []string) (int64, int64, error) {
	if adminEmails == nil {
		adminEmails = []string{}
	}
	promote, err := r.db.Exec(ctx, `
		UPDATE users SET is_admin = TRUE, updated_at = NOW()
		WHERE lower(email) = ANY($1) AND NOT is_admin`, adminEmails)
	if err != nil {
		return 0, 0, r.handlePostgresError("promote admins", err)
	}

	demote, err := r.db.Exec(ctx, `
		UPDATE users SET is_admin = FALSE, updated_at = NOW()
		WHERE NOT (lower(email) = ANY($1)) AND is_admin`, adminEmails)
	if err != nil {
		return 0, 0, r.handlePostgresError("demote admins", err)
	}

	return promote.RowsAffected(), demote.RowsAffected(), nil
}

var _ simplecatalog.Repository = (*Repository)(nil)
