package simplecatalog

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// DefaultRefreshSkew is how long before a stored expiry a URL is re-signed.
const DefaultRefreshSkew = time.Hour

// expiryMarkers are query parameters that identify a time-limited signed URL.
var expiryMarkers = []string{"x-amz-expires", "expires"}

// ImageResolver decides at read time whether a cached access URL is still
// usable and re-signs it when it is not.
type ImageResolver struct {
	issuer      *ImageIssuer
	ttl         time.Duration
	refreshSkew time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewImageResolver creates a resolver signing with the issuer's display TTL.
func NewImageResolver(issuer *ImageIssuer, refreshSkew time.Duration, now func() time.Time, logger *slog.Logger) *ImageResolver {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageResolver{
		issuer:      issuer,
		ttl:         issuer.Policy().DisplayTTL,
		refreshSkew: refreshSkew,
		now:         now,
		logger:      logger,
	}
}

// Resolve returns the URL to render for an image. It is empty when there is
// no key or when re-signing fails.
func (r *ImageResolver) Resolve(ctx context.Context, key, cachedURL string, expiresAt *time.Time) string {
	resolved, _ := r.resolve(ctx, key, cachedURL, expiresAt)
	return resolved
}

// ResolveMovie returns a copy of m carrying a usable image URL and its expiry.
func (r *ImageResolver) ResolveMovie(ctx context.Context, m *Movie) *Movie {
	out := *m
	out.ImageURL, out.ImageURLExpiresAt = r.resolve(ctx, m.ImageKey, m.ImageURL, m.ImageURLExpiresAt)
	return &out
}

// NeedsRefresh reports whether a cached URL must be re-signed.
func (r *ImageResolver) NeedsRefresh(cachedURL string, expiresAt *time.Time) bool {
	if cachedURL == "" {
		return true
	}
	if expiresAt != nil {
		return !r.now().Add(r.refreshSkew).Before(*expiresAt)
	}
	return hasExpiryMarker(cachedURL)
}

func (r *ImageResolver) resolve(ctx context.Context, key, cachedURL string, expiresAt *time.Time) (string, *time.Time) {
	if key == "" {
		return "", nil
	}
	if !r.NeedsRefresh(cachedURL, expiresAt) {
		return cachedURL, expiresAt
	}

	signed, err := r.issuer.Sign(ctx, key, r.ttl)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to refresh image URL", "key", key, "error", err)
		return "", nil
	}
	exp := signed.ExpiresAt
	return signed.URL, &exp
}

// hasExpiryMarker reports whether rawURL's query carries an expiry parameter.
// Unparseable URLs count as expiring so they get replaced.
func hasExpiryMarker(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	for name := range u.Query() {
		for _, marker := range expiryMarkers {
			if strings.EqualFold(name, marker) {
				return true
			}
		}
	}
	return false
}
