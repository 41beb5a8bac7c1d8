package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Claims carried by session tokens
const (
	ClaimEmail   = "email"
	ClaimName    = "name"
	ClaimPicture = "picture"
)

// SessionResolver turns a verified identity into a session
type SessionResolver interface {
	ResolveSession(ctx context.Context, identity simplecatalog.Identity) (*simplecatalog.Session, error)
}

// NewTokenAuth returns an HS256 verifier for session tokens
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// EncodeSessionToken issues a session token for identity that expires after ttl
func EncodeSessionToken(tokenAuth *jwtauth.JWTAuth, identity simplecatalog.Identity, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		ClaimEmail:   identity.Email,
		ClaimName:    identity.Name,
		ClaimPicture: identity.Image,
	}
	jwtauth.SetIssuedNow(claims)
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}
	_, token, err := tokenAuth.Encode(claims)
	return token, err
}

// SessionMiddleware verifies the session token from the Authorization header
// or the jwt cookie and stores the resolved session in the request context.
// Requests without a valid token continue anonymously; the service decides
// which operations need a session.
func SessionMiddleware(tokenAuth *jwtauth.JWTAuth, resolver SessionResolver) func(http.Handler) http.Handler {
	verifier := jwtauth.Verifier(tokenAuth)

	return func(next http.Handler) http.Handler {
		return verifier(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, claims, err := jwtauth.FromContext(ctx)
			if err != nil || token == nil {
				if err != nil && err != jwtauth.ErrNoTokenFound {
					slog.DebugContext(ctx, "ignoring invalid session token", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			session, err := resolver.ResolveSession(ctx, identityFromClaims(claims))
			if err != nil {
				slog.WarnContext(ctx, "failed to resolve session", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(simplecatalog.WithSession(ctx, session)))
		}))
	}
}

func identityFromClaims(claims map[string]interface{}) simplecatalog.Identity {
	str := func(key string) string {
		if v, ok := claims[key].(string); ok {
			return v
		}
		return ""
	}
	return simplecatalog.Identity{
		Email: str(ClaimEmail),
		Name:  str(ClaimName),
		Image: str(ClaimPicture),
	}
}
