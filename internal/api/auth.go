package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// LocalUser is the identity used when the server runs without an auth
// secret.
const LocalUser = "local"

var (
	errMissingToken = errors.New("authorization required")
	errInvalidToken = errors.New("invalid or expired token")
)

type userKey struct{}

// UserFrom returns the authenticated user ID stored in ctx.
func UserFrom(ctx context.Context) string {
	if u, ok := ctx.Value(userKey{}).(string); ok {
		return u
	}
	return ""
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// Authenticator validates HS256 bearer tokens issued by Supabase. The
// token's subject is the user ID.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthenticator returns an Authenticator. An empty secret disables
// authentication: every request runs as [LocalUser].
func NewAuthenticator(secret, issuer, audience string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Enabled reports whether tokens are checked.
func (a *Authenticator) Enabled() bool { return len(a.secret) > 0 }

// UserID validates the bearer token in r and returns its subject.
func (a *Authenticator) UserID(r *http.Request) (string, error) {
	if !a.Enabled() {
		return LocalUser, nil
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return "", errMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", errInvalidToken)
	}
	return claims.Subject, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the user
// ID in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.UserID(r)
		if err != nil {
			if a.Enabled() {
				w.Header().Set("WWW-Authenticate", `Bearer realm="vidpilot"`)
			}
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
