package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-auth-nosql/internal/domain"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthCookie is the cookie browsers carry the bearer token in.
const AuthCookie = "Authorization"

type tokenValidator interface {
	Validate(token string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the session token and injects claims into
// context. Clients sending "client: not-browser" pass the token in the Authorization
// header; browsers send it in the Authorization cookie.
func Auth(tokens tokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				writeJSONError(w, http.StatusForbidden, "Unauthorized - Token missing!")
				return
			}
			claims, err := tokens.Validate(raw)
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				writeJSONError(w, http.StatusUnauthorized, "Token expired!")
				return
			case err != nil:
				writeJSONError(w, http.StatusUnauthorized, "Invalid token!")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest accepts both "Bearer <jwt>" and a bare token.
func tokenFromRequest(r *http.Request) string {
	var v string
	if r.Header.Get("client") == "not-browser" {
		v = r.Header.Get("Authorization")
	} else if c, err := r.Cookie(AuthCookie); err == nil {
		v = c.Value
	}
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = strings.TrimSpace(v[i+1:])
	}
	return v
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}

// WithClaims returns ctx carrying claims, as Auth would leave it.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
