// Package mongodb stores the catalog in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	DefaultDatabase = "simple_catalog"

	moviesCollection   = "movies"
	usersCollection    = "users"
	wishlistCollection = "wishlist_items"

	connectTimeout = 10 * time.Second
)

// Config holds MongoDB connection settings
type Config struct {
	URI      string
	Database string
}

// Repository implements simplecatalog.Repository on MongoDB. The client is
// created on first use and shared by all callers until Close.
type Repository struct {
	cfg Config

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

// New creates a repository. No connection is made until the first operation.
func New(cfg Config) (*Repository, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	return &Repository{cfg: cfg}, nil
}

// database returns the connected handle, connecting and creating indexes on
// first call. A failed attempt is retried on the next call.
func (r *Repository) database(ctx context.Context) (*mongo.Database, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(r.cfg.URI).SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	db := client.Database(r.cfg.Database)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	r.client = client
	r.db = db
	return db, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(wishlistCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("userId_movieId_unique"),
		},
		{Keys: bson.D{{Key: "movieId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create wishlist indexes: %w", err)
	}

	_, err = db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = db.Collection(moviesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create movie indexes: %w", err)
	}
	return nil
}

func (r *Repository) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping connects if needed and verifies the primary is reachable
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.database(ctx)
	if err != nil {
		return err
	}
	return db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client. The repository reconnects if used again.
func (r *Repository) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Disconnect(ctx)
	r.client = nil
	r.db = nil
	return err
}

func handleMongoError(operation string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return simplecatalog.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", operation, simplecatalog.ErrAlreadyExists)
	default:
		return fmt.Errorf("database error in %s: %w", operation, err)
	}
}

// Movie operations

func (r *Repository) CreateMovie(ctx context.Context, movie *simplecatalog.Movie) error {
	coll, err := r.collection(ctx, moviesCollection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, toMovieDocument(movie)); err != nil {
		return handleMongoError("create movie", err)
	}
	return nil
}

func (r *Repository) GetMovie(ctx context.Context, id string) (*simplecatalog.Movie, error) {
	coll, err := r.collection(ctx, moviesCollection)
	if err != nil {
		return nil, err
	}
	var doc movieDocument
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, handleMongoError("get movie", err)
	}
	return doc.toMovie(), nil
}

func (r *Repository) findMovies(ctx context.Context, filter bson.M) ([]*simplecatalog.Movie, error) {
	coll, err := r.collection(ctx, moviesCollection)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, handleMongoError("find movies", err)
	}
	var docs []movieDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, handleMongoError("find movies", err)
	}

	movies := make([]*simplecatalog.Movie, 0, len(docs))
	for _, d := range docs {
		movies = append(movies, d.toMovie())
	}
	return movies, nil
}

func (r *Repository) GetMoviesByIDs(ctx context.Context, ids []string) (map[string]*simplecatalog.Movie, error) {
	result := make(map[string]*simplecatalog.Movie, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	movies, err := r.findMovies(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, m := range movies {
		result[m.ID] = m
	}
	return result, nil
}

func (r *Repository) ListMovies(ctx context.Context) ([]*simplecatalog.Movie, error) {
	return r.findMovies(ctx, bson.M{})
}

func (r *Repository) UpdateMovie(ctx context.Context, movie *simplecatalog.Movie) error {
	coll, err := r.collection(ctx, moviesCollection)
	if err != nil {
		return err
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": movie.ID}, toMovieDocument(movie))
	if err != nil {
		return handleMongoError("update movie", err)
	}
	if res.MatchedCount == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteMovie(ctx context.Context, id string) error {
	coll, err := r.collection(ctx, moviesCollection)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return handleMongoError("delete movie", err)
	}
	if res.DeletedCount == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

// Wishlist operations

func wishlistFilter(filter simplecatalog.WishlistFilter) bson.M {
	f := bson.M{}
	if filter.UserID != "" {
		f["userId"] = filter.UserID
	}
	if filter.MovieID != "" {
		f["movieId"] = filter.MovieID
	}
	return f
}

func (r *Repository) CreateWishlistEntry(ctx context.Context, entry *simplecatalog.WishlistEntry) error {
	coll, err := r.collection(ctx, wishlistCollection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, toWishlistDocument(entry)); err != nil {
		return handleMongoError("create wishlist entry", err)
	}
	return nil
}

func (r *Repository) FindWishlistEntry(ctx context.Context, userID, movieID string) (*simplecatalog.WishlistEntry, error) {
	coll, err := r.collection(ctx, wishlistCollection)
	if err != nil {
		return nil, err
	}
	var doc wishlistDocument
	if err := coll.FindOne(ctx, bson.M{"userId": userID, "movieId": movieID}).Decode(&doc); err != nil {
		return nil, handleMongoError("find wishlist entry", err)
	}
	return doc.toEntry(), nil
}

func (r *Repository) ListWishlistEntries(ctx context.Context, filter simplecatalog.WishlistFilter) ([]*simplecatalog.WishlistEntry, error) {
	coll, err := r.collection(ctx, wishlistCollection)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, wishlistFilter(filter), options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, handleMongoError("list wishlist entries", err)
	}
	var docs []wishlistDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, handleMongoError("list wishlist entries", err)
	}

	entries := make([]*simplecatalog.WishlistEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toEntry())
	}
	return entries, nil
}

func (r *Repository) CountWishlistEntries(ctx context.Context, filter simplecatalog.WishlistFilter) (int64, error) {
	coll, err := r.collection(ctx, wishlistCollection)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, wishlistFilter(filter))
	if err != nil {
		return 0, handleMongoError("count wishlist entries", err)
	}
	return n, nil
}

func (r *Repository) deleteWishlist(ctx context.Context, operation string, filter bson.M) (int64, error) {
	coll, err := r.collection(ctx, wishlistCollection)
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, handleMongoError(operation, err)
	}
	return res.DeletedCount, nil
}

func (r *Repository) DeleteWishlistEntry(ctx context.Context, userID, movieID string) (int64, error) {
	return r.deleteWishlist(ctx, "delete wishlist entry", bson.M{"userId": userID, "movieId": movieID})
}

func (r *Repository) DeleteWishlistEntriesByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.deleteWishlist(ctx, "delete wishlist entries", bson.M{"_id": bson.M{"$in": ids}})
}

func (r *Repository) DeleteWishlistEntriesByMovie(ctx context.Context, movieID string) (int64, error) {
	return r.deleteWishlist(ctx, "delete wishlist entries by movie", bson.M{"movieId": movieID})
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *simplecatalog.User) error {
	coll, err := r.collection(ctx, usersCollection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, toUserDocument(user)); err != nil {
		return handleMongoError("create user", err)
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simplecatalog.User, error) {
	coll, err := r.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}
	var doc userDocument
	if err := coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, handleMongoError("get user", err)
	}
	return doc.toUser(), nil
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*simplecatalog.User, error) {
	result := make(map[string]*simplecatalog.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	coll, err := r.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, handleMongoError("get users by ids", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, handleMongoError("get users by ids", err)
	}
	for _, d := range docs {
		result[d.ID] = d.toUser()
	}
	return result, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *simplecatalog.User) error {
	coll, err := r.collection(ctx, usersCollection)
	if err != nil {
		return err
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, toUserDocument(user))
	if err != nil {
		return handleMongoError("update user", err)
	}
	if res.MatchedCount == 0 {
		return simplecatalog.ErrNotFound
	}
	return nil
}

// SetAdminSnapshot expects adminEmails to be normalized the same way stored
// emails are.
func (r *Repository) SetAdminSnapshot(ctx context.Context, adminEmails []string) (int64, int64, error) {
	coll, err := r.collection(ctx, usersCollection)
	if err != nil {
		return 0, 0, err
	}
	if adminEmails == nil {
		adminEmails = []string{}
	}
	now := time.Now().UTC()

	promoted, err := coll.UpdateMany(ctx,
		bson.M{"email": bson.M{"$in": adminEmails}, "isAdmin": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"isAdmin": true, "updatedAt": now}})
	if err != nil {
		return 0, 0, handleMongoError("promote admins", err)
	}

	demoted, err := coll.UpdateMany(ctx,
		bson.M{"email": bson.M{"$nin": adminEmails}, "isAdmin": true},
		bson.M{"$set": bson.M{"isAdmin": false, "updatedAt": now}})
	if err != nil {
		return 0, 0, handleMongoError("demote admins", err)
	}

	return promoted.ModifiedCount, demoted.ModifiedCount, nil
}

var _ simplecatalog.Repository = (*Repository)(nil)
