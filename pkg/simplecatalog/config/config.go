package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/api"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/presigned"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/mongodb"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/repo/postgres"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
	s3storage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/s3"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseMongoDB  = "mongodb"
)

// Storage types
const (
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// ServerConfig represents server-level configuration for building a Service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database
	DatabaseType  string // memory, postgres, mongodb
	DatabaseURL   string
	DatabaseName  string // mongodb only
	DBSchema      string // postgres only
	RunMigrations bool

	// Object storage
	StorageType    string // memory, s3
	S3             s3storage.Config
	ImageKeyPrefix string
	PublicBaseURL  string // prepended to in-memory object URLs

	// Security
	AdminEmails   []string
	SessionSecret string
	SigningSecret string

	// HTTP
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// Option configures a ServerConfig
type Option func(*ServerConfig) error

// Load builds a ServerConfig from defaults and the given options, then validates it
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:            "8080",
		Environment:     "development",
		DatabaseType:    DatabaseMemory,
		DatabaseName:    mongodb.DefaultDatabase,
		RunMigrations:   true,
		StorageType:     StorageMemory,
		S3:              s3storage.Config{Region: s3storage.DefaultRegion},
		ImageKeyPrefix:  objectkey.DefaultPrefix,
		RequestTimeout:  60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// IsProduction reports whether the server runs in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the configuration for consistency
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseMongoDB:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	switch c.StorageType {
	case StorageMemory:
	case StorageS3:
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	if c.IsProduction() {
		if c.SessionSecret == "" {
			return errors.New("session secret is required in production")
		}
		if c.StorageType == StorageMemory && c.SigningSecret == "" {
			return errors.New("signing secret is required for in-memory storage in production")
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Runtime holds a built Service together with the HTTP pieces that depend on
// the chosen backends and the handles that must be closed on shutdown.
type Runtime struct {
	Service   simplecatalog.Service
	TokenAuth *jwtauth.JWTAuth

	// Objects serves signed URLs for the in-memory blob store. Nil for S3.
	Objects *api.ObjectHandler

	closers []func(context.Context) error
}

// Router assembles the HTTP router for the runtime
func (r *Runtime) Router(c *ServerConfig, logger *slog.Logger) *chi.Mux {
	return api.NewRouter(api.RouterConfig{
		Service:        r.Service,
		TokenAuth:      r.TokenAuth,
		Objects:        r.Objects,
		Logger:         logger,
		AllowedOrigins: c.AllowedOrigins,
		RequestTimeout: c.RequestTimeout,
	})
}

// Close releases database connections, newest first
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildService constructs the repository, blob store and Service described by the config
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{}

	repo, err := c.buildRepository(ctx, rt, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	blobStore, err := c.buildBlobStore(ctx, rt, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	svc, err := simplecatalog.New(
		simplecatalog.WithRepository(repo),
		simplecatalog.WithBlobStore(blobStore),
		simplecatalog.WithImageKeyPrefix(c.ImageKeyPrefix),
		simplecatalog.WithAdminEmails(c.AdminEmails...),
		simplecatalog.WithLogger(logger),
	)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	rt.Service = svc

	sessionSecret := c.SessionSecret
	if sessionSecret == "" {
		sessionSecret = uuid.NewString()
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}
	rt.TokenAuth = api.NewTokenAuth(sessionSecret)

	if len(c.AdminEmails) == 0 {
		logger.Warn("no admin emails configured; every session is a regular user")
	}

	return rt, nil
}

// BuildRepository connects only the repository, for tools that need no blob
// store. Close the returned runtime when done.
func (c *ServerConfig) BuildRepository(ctx context.Context, logger *slog.Logger) (simplecatalog.Repository, *Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{}
	repo, err := c.buildRepository(ctx, rt, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, nil, err
	}
	return repo, rt, nil
}

func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime, logger *slog.Logger) (simplecatalog.Repository, error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		logger.Info("using in-memory repository")
		return memory.New(), nil

	case DatabasePostgres:
		pool, err := postgres.Connect(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if c.RunMigrations {
			if err := postgres.Migrate(ctx, pool, logger); err != nil {
				return nil, err
			}
		}
		logger.Info("using postgres repository", "schema", c.DBSchema)
		return postgres.NewWithPool(pool), nil

	case DatabaseMongoDB:
		repo, err := mongodb.New(mongodb.Config{URI: c.DatabaseURL, Database: c.DatabaseName})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, repo.Close)
		logger.Info("using mongodb repository", "database", c.DatabaseName)
		return repo, nil
	}

	return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
}

func (c *ServerConfig) buildBlobStore(ctx context.Context, rt *Runtime, logger *slog.Logger) (simplecatalog.BlobStore, error) {
	switch c.StorageType {
	case StorageMemory:
		secret := c.SigningSecret
		if secret == "" {
			secret = uuid.NewString()
			logger.Warn("SIGNING_SECRET not set, using a random secret; object URLs will not survive a restart")
		}
		signer := presigned.New(presigned.WithSecretKey(secret))
		store := memorystorage.New(signer, c.PublicBaseURL)
		rt.Objects = api.NewObjectHandler(store, signer, simplecatalog.DefaultImagePolicy().MaxSize)
		logger.Info("using in-memory blob store")
		return store, nil

	case StorageS3:
		store, err := s3storage.New(ctx, c.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 blob store: %w", err)
		}
		logger.Info("using s3 blob store", "bucket", c.S3.Bucket, "region", c.S3.Region)
		return store, nil
	}

	return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
}
