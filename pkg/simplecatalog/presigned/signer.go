package presigned

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query parameters carried by a signed URL.
const (
	SignatureParam = "signature"
	ExpiresParam   = "expires"
)

// Signer generates and validates HMAC-signed URLs
type Signer struct {
	secretKey         []byte
	defaultExpiration time.Duration
	urlPattern        string // e.g., "/objects/{key}"
	now               func() time.Time
}

// New creates a new Signer with the given options
func New(opts ...Option) *Signer {
	s := &Signer{
		defaultExpiration: 1 * time.Hour,
		urlPattern:        "/objects/{key}",
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SignURL generates a signed URL for the given HTTP method and path and
// returns it together with its expiration time.
//
// Example:
//
//	url, exp, err := signer.SignURL("GET", "/objects/movie-posters/a.jpg", time.Hour)
//	// url: /objects/movie-posters/a.jpg?signature=abc123...&expires=1696789012
func (s *Signer) SignURL(method, path string, expiresIn time.Duration) (string, time.Time, error) {
	if len(s.secretKey) == 0 {
		return "", time.Time{}, ErrNoSecretKey
	}

	if expiresIn <= 0 {
		expiresIn = s.defaultExpiration
	}

	expiresAt := s.now().Add(expiresIn).Truncate(time.Second)
	signature := s.generateSignature(createPayload(method, path, expiresAt.Unix()))

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	signedURL := fmt.Sprintf("%s%s%s=%s&%s=%d",
		path, separator, SignatureParam, signature, ExpiresParam, expiresAt.Unix())

	return signedURL, expiresAt, nil
}

// SignURLWithBase generates a signed URL with a base URL prefix
func (s *Signer) SignURLWithBase(baseURL, method, path string, expiresIn time.Duration) (string, time.Time, error) {
	signedPath, expiresAt, err := s.SignURL(method, path, expiresIn)
	if err != nil {
		return "", time.Time{}, err
	}
	return strings.TrimRight(baseURL, "/") + signedPath, expiresAt, nil
}

// ValidateRequest validates the signature and expiration of an HTTP request
func (s *Signer) ValidateRequest(r *http.Request) error {
	if len(s.secretKey) == 0 {
		return ErrNoSecretKey
	}

	query := r.URL.Query()
	signature := query.Get(SignatureParam)
	expiresStr := query.Get(ExpiresParam)

	if signature == "" {
		return ErrMissingSignature
	}
	if expiresStr == "" {
		return ErrMissingExpiration
	}

	expiresAt, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpiration, err)
	}

	path := r.URL.EscapedPath()
	cleanQuery := url.Values{}
	for k, v := range query {
		if k != SignatureParam && k != ExpiresParam {
			cleanQuery[k] = v
		}
	}
	if len(cleanQuery) > 0 {
		path = path + "?" + cleanQuery.Encode()
	}

	return s.Validate(r.Method, path, signature, expiresAt)
}

// Validate validates the signature and expiration for a given method, path, signature, and expiration timestamp
func (s *Signer) Validate(method, path, signature string, expiresAt int64) error {
	if s.now().Unix() > expiresAt {
		return ErrExpired
	}

	expected := s.generateSignature(createPayload(method, path, expiresAt))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}

	return nil
}

// ObjectPath returns the escaped request path for objectKey under the URL pattern.
func (s *Signer) ObjectPath(objectKey string) string {
	segments := strings.Split(objectKey, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Replace(s.urlPattern, "{key}", strings.Join(segments, "/"), 1)
}

// ExtractObjectKey extracts the object key from a URL path based on the configured URL pattern
func (s *Signer) ExtractObjectKey(path string) (string, error) {
	idx := strings.Index(s.urlPattern, "{key}")
	if idx == -1 {
		return "", fmt.Errorf("URL pattern does not contain {key} placeholder")
	}

	prefix := s.urlPattern[:idx]
	suffix := s.urlPattern[idx+len("{key}"):]

	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("path does not match URL pattern prefix")
	}

	key := strings.TrimPrefix(path, prefix)
	if suffix != "" {
		key = strings.TrimSuffix(key, suffix)
	}

	unescaped, err := url.PathUnescape(key)
	if err != nil {
		return "", fmt.Errorf("invalid object key %q: %w", key, err)
	}
	return unescaped, nil
}

// IsEnabled returns true if a secret key is configured
func (s *Signer) IsEnabled() bool {
	return len(s.secretKey) > 0
}

// createPayload builds METHOD|PATH|EXPIRES
func createPayload(method, path string, expiresAt int64) string {
	return fmt.Sprintf("%s|%s|%d", strings.ToUpper(method), path, expiresAt)
}

func (s *Signer) generateSignature(payload string) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
