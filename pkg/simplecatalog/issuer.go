package simplecatalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// ImagePolicy bounds what the issuer accepts and how long URLs stay valid.
type ImagePolicy struct {
	AllowedContentTypes []string
	MaxSize             int64

	// DisplayTTL is the validity of catalog access URLs, UploadTTL that of
	// direct-upload URLs. MaxTTL caps any requested lifetime.
	DisplayTTL time.Duration
	UploadTTL  time.Duration
	MaxTTL     time.Duration

	// KeyPrefix is the logical folder every poster key lives under.
	KeyPrefix string
}

// DefaultImagePolicy returns the catalog defaults: JPEG, PNG and WebP up to
// 5 MiB, 7-day display URLs and 1-hour upload URLs.
func DefaultImagePolicy() ImagePolicy {
	return ImagePolicy{
		AllowedContentTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
		MaxSize:             5 * 1024 * 1024,
		DisplayTTL:          7 * 24 * time.Hour,
		UploadTTL:           time.Hour,
		MaxTTL:              7 * 24 * time.Hour,
		KeyPrefix:           objectkey.DefaultPrefix,
	}
}

// ImageIssuer stores poster objects and issues time-limited access URLs for them.
type ImageIssuer struct {
	store  BlobStore
	minter objectkey.Minter
	policy ImagePolicy
	logger *slog.Logger
}

// NewImageIssuer creates an issuer over store. A nil minter mints UUID keys
// under the policy prefix.
func NewImageIssuer(store BlobStore, minter objectkey.Minter, policy ImagePolicy, logger *slog.Logger) *ImageIssuer {
	policy.KeyPrefix = objectkey.NormalizePrefix(policy.KeyPrefix)
	if minter == nil {
		minter = objectkey.NewUUIDMinter(policy.KeyPrefix)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageIssuer{store: store, minter: minter, policy: policy, logger: logger}
}

// Policy returns the issuer's limits.
func (i *ImageIssuer) Policy() ImagePolicy {
	return i.policy
}

// Put validates data and stores it at key. The checks repeat those done at
// the HTTP boundary because Put is also reachable from other callers.
func (i *ImageIssuer) Put(ctx context.Context, data []byte, key, contentType string) error {
	if key == "" {
		return invalidInput("key", "image key is required")
	}
	if err := i.CheckContentType(contentType); err != nil {
		return err
	}
	if err := i.CheckSize(int64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return invalidInput("file", "file is empty")
	}

	detected := mimetype.Detect(data)
	if !i.allowedMIME(detected) {
		return invalidInput("file", fmt.Sprintf("file content (%s) is not an allowed image type", detected.String()))
	}

	if err := i.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return &StorageError{Key: key, Op: "put", Err: fmt.Errorf("%w: %v", ErrStorageUnavailable, err)}
	}
	return nil
}

// Sign returns a read-only URL for key. A zero ttl means the display TTL;
// anything above MaxTTL is clamped.
func (i *ImageIssuer) Sign(ctx context.Context, key string, ttl time.Duration) (*SignedURL, error) {
	if key == "" {
		return nil, invalidInput("key", "image key is required")
	}
	if ttl <= 0 {
		ttl = i.policy.DisplayTTL
	}
	if i.policy.MaxTTL > 0 && ttl > i.policy.MaxTTL {
		ttl = i.policy.MaxTTL
	}

	signed, err := i.store.SignGet(ctx, key, ttl)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "sign", Err: fmt.Errorf("%w: %v", ErrSigningFailed, err)}
	}
	return signed, nil
}

// Upload mints a key for the file, stores it and signs a display URL.
func (i *ImageIssuer) Upload(ctx context.Context, req UploadImageRequest) (*UploadedImage, error) {
	if req.Reader == nil {
		return nil, invalidInput("file", "no file provided")
	}
	if err := i.CheckContentType(req.ContentType); err != nil {
		return nil, err
	}
	if err := i.CheckSize(req.Size); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(req.Reader, i.policy.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	key := i.minter.Mint(req.FileName, req.ContentType)
	if err := i.Put(ctx, data, key, req.ContentType); err != nil {
		return nil, err
	}

	signed, err := i.Sign(ctx, key, i.policy.DisplayTTL)
	if err != nil {
		i.Delete(ctx, key)
		return nil, err
	}

	i.logger.InfoContext(ctx, "stored poster image", "key", key, "size", len(data), "content_type", req.ContentType)
	return &UploadedImage{Key: key, URL: signed.URL, ExpiresAt: signed.ExpiresAt}, nil
}

// PresignUpload mints a key and returns a URL the client can PUT the file to.
func (i *ImageIssuer) PresignUpload(ctx context.Context, req PresignImageUploadRequest) (*PresignedUpload, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, invalidInput("fileName", "fileName is required")
	}
	if err := i.CheckContentType(req.ContentType); err != nil {
		return nil, err
	}

	key := i.minter.Mint(req.FileName, req.ContentType)
	signed, err := i.store.SignPut(ctx, key, req.ContentType, i.policy.UploadTTL)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "presign", Err: fmt.Errorf("%w: %v", ErrSigningFailed, err)}
	}
	return &PresignedUpload{Key: key, URL: signed.URL, ExpiresAt: signed.ExpiresAt}, nil
}

// Delete removes the object referenced by keyOrURL. It never fails: malformed
// references, missing objects and store errors are logged and dropped.
func (i *ImageIssuer) Delete(ctx context.Context, keyOrURL string) {
	key, err := i.KeyFromReference(keyOrURL)
	if err != nil {
		i.logger.WarnContext(ctx, "skipping image delete", "reference", keyOrURL, "error", err)
		return
	}
	if err := i.store.Delete(ctx, key); err != nil {
		i.logger.WarnContext(ctx, "failed to delete image object", "key", key, "error", err)
		return
	}
	i.logger.DebugContext(ctx, "deleted image object", "key", key)
}

// KeyFromReference returns the storage key for a bare key or an access URL.
// For URLs the key is taken from the first occurrence of the key prefix in the
// path, so path-style bucket segments and route prefixes are skipped.
func (i *ImageIssuer) KeyFromReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty image reference")
	}

	if !strings.Contains(ref, "://") && !strings.HasPrefix(ref, "/") {
		if err := i.CheckKey(ref); err != nil {
			return "", err
		}
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image URL: %w", err)
	}
	idx := strings.Index(u.Path, i.policy.KeyPrefix)
	if idx < 0 {
		return "", fmt.Errorf("image URL path %q is outside %q", u.Path, i.policy.KeyPrefix)
	}
	key := u.Path[idx:]
	if err := i.CheckKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// CheckKey reports whether key is a well-formed key under the policy prefix.
func (i *ImageIssuer) CheckKey(key string) error {
	if !strings.HasPrefix(key, i.policy.KeyPrefix) || len(key) == len(i.policy.KeyPrefix) {
		return invalidInput("key", "invalid image key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return invalidInput("key", "invalid image key")
		}
	}
	return nil
}

// CheckContentType rejects content types outside the allow-list.
func (i *ImageIssuer) CheckContentType(contentType string) error {
	ct := normalizeContentType(contentType)
	for _, allowed := range i.policy.AllowedContentTypes {
		if ct == allowed {
			return nil
		}
	}
	return invalidInput("file", "Invalid file type. Only JPEG, PNG, and WebP are allowed.")
}

// CheckSize rejects files above the size ceiling.
func (i *ImageIssuer) CheckSize(size int64) error {
	if size > i.policy.MaxSize {
		return invalidInput("file", fmt.Sprintf("File too large. Maximum size is %dMB.", i.policy.MaxSize/(1024*1024)))
	}
	return nil
}

func (i *ImageIssuer) allowedMIME(detected *mimetype.MIME) bool {
	for _, allowed := range i.policy.AllowedContentTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
