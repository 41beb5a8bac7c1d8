package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/presigned"
)

// ErrObjectNotFound is returned for keys that hold no object.
var ErrObjectNotFound = errors.New("object not found")

type object struct {
	data        []byte
	contentType string
}

// Backend is an in-memory implementation of the simplecatalog.BlobStore
// interface. Access URLs are HMAC-signed paths served by the application.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
	signer  *presigned.Signer
	baseURL string
}

// New creates a new in-memory storage backend. baseURL is prepended to signed
// paths and may be empty for relative URLs.
func New(signer *presigned.Signer, baseURL string) *Backend {
	return &Backend{
		objects: make(map[string]object),
		signer:  signer,
		baseURL: baseURL,
	}
}

// Signer returns the signer used for access URLs.
func (b *Backend) Signer() *presigned.Signer {
	return b.signer
}

// Put stores content at objectKey
func (b *Backend) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch for %s: expected %d bytes, got %d", objectKey, size, len(data))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = object{data: data, contentType: contentType}
	return nil
}

// SignGet returns a signed download URL for objectKey
func (b *Backend) SignGet(ctx context.Context, objectKey string, ttl time.Duration) (*simplecatalog.SignedURL, error) {
	return b.sign("GET", objectKey, ttl)
}

// SignPut returns a signed upload URL for objectKey
func (b *Backend) SignPut(ctx context.Context, objectKey string, contentType string, ttl time.Duration) (*simplecatalog.SignedURL, error) {
	return b.sign("PUT", objectKey, ttl)
}

func (b *Backend) sign(method, objectKey string, ttl time.Duration) (*simplecatalog.SignedURL, error) {
	if b.signer == nil {
		return nil, presigned.ErrNoSecretKey
	}
	u, expiresAt, err := b.signer.SignURLWithBase(b.baseURL, method, b.signer.ObjectPath(objectKey), ttl)
	if err != nil {
		return nil, err
	}
	return &simplecatalog.SignedURL{URL: u, ExpiresAt: expiresAt}, nil
}

// Download returns the stored content and its content type
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, "", ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

// Exists reports whether objectKey holds an object
func (b *Backend) Exists(objectKey string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[objectKey]
	return exists
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return ErrObjectNotFound
	}
	delete(b.objects, objectKey)
	return nil
}

// Ping always succeeds for the in-memory backend
func (b *Backend) Ping(ctx context.Context) error {
	return nil
}

var _ simplecatalog.BlobStore = (*Backend)(nil)
