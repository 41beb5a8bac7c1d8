package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// EnvConfig is the process environment the server reads
type EnvConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL   string `env:"DATABASE_URL" env-default:"memory"`
	DatabaseName  string `env:"DATABASE_NAME" env-default:"simple_catalog"`
	DBSchema      string `env:"DB_SCHEMA"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" env-default:"true"`

	StorageURL         string `env:"STORAGE_URL" env-default:"memory://"`
	AWSRegion          string `env:"AWS_REGION" env-default:"ap-south-2"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSS3Endpoint      string `env:"AWS_S3_ENDPOINT"`
	AWSS3UsePathStyle  bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	AWSS3CreateBucket  bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
	ImageKeyPrefix     string `env:"IMAGE_KEY_PREFIX" env-default:"movie-posters/"`
	PublicBaseURL      string `env:"PUBLIC_BASE_URL"`

	AdminEmails   string `env:"ADMIN_EMAILS"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	SessionSecret string `env:"SESSION_SECRET"`
	SigningSecret string `env:"SIGNING_SECRET"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// WithEnv reads configuration from environment variables
//
// DATABASE_URL selects the repository by scheme:
//
//	memory                          in-process maps
//	postgres://, postgresql://      PostgreSQL
//	mongodb://, mongodb+srv://      MongoDB
//
// STORAGE_URL selects the blob store: memory:// or s3://bucket.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env EnvConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func (e EnvConfig) apply(c *ServerConfig) error {
	c.Port = e.Port
	c.Environment = e.Environment
	c.DBSchema = e.DBSchema
	c.DatabaseName = e.DatabaseName
	c.RunMigrations = e.RunMigrations
	c.ImageKeyPrefix = e.ImageKeyPrefix
	c.PublicBaseURL = strings.TrimRight(e.PublicBaseURL, "/")
	c.SessionSecret = e.SessionSecret
	c.SigningSecret = e.SigningSecret
	c.AdminEmails = simplecatalog.ParseAdminEmails(e.AdminEmails, e.AdminEmail)
	c.AllowedOrigins = trimAll(e.AllowedOrigins)
	c.LogLevel = e.LogLevel
	c.LogFile = e.LogFile

	if err := applyDatabaseURL(e.DatabaseURL, c); err != nil {
		return err
	}

	c.S3.Region = e.AWSRegion
	c.S3.AccessKeyID = e.AWSAccessKeyID
	c.S3.SecretAccessKey = e.AWSSecretAccessKey
	c.S3.Endpoint = e.AWSS3Endpoint
	c.S3.UsePathStyle = e.AWSS3UsePathStyle
	c.S3.CreateBucketIfNotExist = e.AWSS3CreateBucket

	return applyStorageURL(e.StorageURL, c)
}

func applyDatabaseURL(databaseURL string, c *ServerConfig) error {
	switch {
	case databaseURL == "" || databaseURL == "memory" || databaseURL == "memory://":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = databaseURL
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		c.DatabaseType = DatabaseMongoDB
		c.DatabaseURL = databaseURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format (use 'memory', 'postgres://...' or 'mongodb://...')")
	}
	return nil
}

// applyStorageURL configures the blob store from a URL
// Format: memory:// or s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true
func applyStorageURL(storageURL string, c *ServerConfig) error {
	if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.StorageType = StorageMemory
		return nil
	}

	if !strings.HasPrefix(storageURL, "s3://") {
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://' or 's3://...')", storageURL)
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	c.StorageType = StorageS3
	c.S3.Bucket = u.Host

	q := u.Query()
	if region := q.Get("region"); region != "" {
		c.S3.Region = region
	}
	if endpoint := q.Get("endpoint"); endpoint != "" {
		c.S3.Endpoint = endpoint
	}
	if raw := q.Get("path_style"); raw != "" {
		pathStyle, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
		}
		c.S3.UsePathStyle = pathStyle
	}

	return nil
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
