package config

import (
	"fmt"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	s3storage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/s3"
)

// WithPort sets the HTTP port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the repository type and connection URL
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory, DatabasePostgres, DatabaseMongoDB:
		default:
			return fmt.Errorf("unsupported database type: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the postgres schema
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithDatabaseName sets the mongodb database name
func WithDatabaseName(name string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseName = name
		return nil
	}
}

// WithMigrations toggles running postgres migrations on startup
func WithMigrations(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.RunMigrations = enabled
		return nil
	}
}

// WithMemoryStorage keeps poster objects in process memory
func WithMemoryStorage(signingSecret, publicBaseURL string) Option {
	return func(c *ServerConfig) error {
		c.StorageType = StorageMemory
		c.SigningSecret = signingSecret
		c.PublicBaseURL = publicBaseURL
		return nil
	}
}

// WithS3Storage stores poster objects in S3 or an S3-compatible service
func WithS3Storage(cfg s3storage.Config) Option {
	return func(c *ServerConfig) error {
		if cfg.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Region == "" {
			cfg.Region = s3storage.DefaultRegion
		}
		c.StorageType = StorageS3
		c.S3 = cfg
		return nil
	}
}

// WithImageKeyPrefix sets the folder poster objects are stored under
func WithImageKeyPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.ImageKeyPrefix = prefix
		return nil
	}
}

// WithAdminEmails sets the admin allow-list. Values may be comma-separated.
func WithAdminEmails(emails ...string) Option {
	return func(c *ServerConfig) error {
		c.AdminEmails = simplecatalog.ParseAdminEmails(emails...)
		return nil
	}
}

// WithSessionSecret sets the HMAC secret for session tokens
func WithSessionSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.SessionSecret = secret
		return nil
	}
}

// WithAllowedOrigins sets the CORS origins. Empty allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.AllowedOrigins = origins
		return nil
	}
}

// WithRequestTimeout bounds how long a single request may run
func WithRequestTimeout(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		c.RequestTimeout = d
		return nil
	}
}

// WithLogging sets the log level and an optional log file
func WithLogging(level, file string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		c.LogFile = file
		return nil
	}
}
