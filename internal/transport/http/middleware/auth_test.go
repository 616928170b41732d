package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, opts ...jwtinfra.Option) *jwtinfra.Provider {
	t.Helper()
	p, err := jwtinfra.NewProvider([]byte("test-secret"), opts...)
	require.NoError(t, err)
	return p
}

func signed(t *testing.T, p *jwtinfra.Provider) string {
	t.Helper()
	tok, err := p.Issue(&domain.Account{AccountID: "acc-1", Email: "a@x.com", Role: domain.RoleUser})
	require.NoError(t, err)
	return tok
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.False(t, body.Success)
	return body.Message
}

func TestAuth_MissingToken(t *testing.T) {
	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Unauthorized - Token missing!", message(t, rr))
}

func TestAuth_BrowserIgnoresHeader(t *testing.T) {
	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, p))
	rr := httptest.NewRecorder()
	Auth(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuth_BadToken(t *testing.T) {
	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("client", "not-browser")
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	Auth(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid token!", message(t, rr))
}

func TestAuth_ExpiredToken(t *testing.T) {
	issued := time.Now().Add(-jwtinfra.TokenTTL - time.Hour)
	old := newTestProvider(t, jwtinfra.WithClock(func() time.Time { return issued }))
	tok := signed(t, old)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: "Bearer " + tok})
	rr := httptest.NewRecorder()
	Auth(newTestProvider(t))(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token expired!", message(t, rr))
}

func TestAuth_ValidToken_InjectsClaims(t *testing.T) {
	p := newTestProvider(t)
	tok := signed(t, p)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"cookie bearer", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AuthCookie, Value: "Bearer " + tok})
		}},
		{"cookie bare", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AuthCookie, Value: tok})
		}},
		{"header", func(r *http.Request) {
			r.Header.Set("client", "not-browser")
			r.Header.Set("Authorization", "Bearer "+tok)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotClaims *jwtinfra.Claims
			captureHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClaims, _ = ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rr := httptest.NewRecorder()
			Auth(p)(captureHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			require.NotNil(t, gotClaims)
			assert.Equal(t, "acc-1", gotClaims.AccountID)
			assert.Equal(t, domain.RoleUser, gotClaims.Role)
		})
	}
}
