package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the fixed validity of a session token. It does not follow the cookie lifetime.
const TokenTTL = 8 * time.Hour

// Claims holds the JWT payload fields. Verified is a snapshot taken at signin.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Verified  bool   `json:"verified"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the identity carried by the token.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{AccountID: c.AccountID, Email: c.Email, Verified: c.Verified, Role: c.Role}
}

// Provider signs and validates HS256 JWTs. Tokens are stateless and cannot be
// revoked before they expire.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(secret []byte, opts ...Option) (*Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt: signing secret is empty")
	}
	p := &Provider{
		secret: append([]byte(nil), secret...),
		expiry: TokenTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Issue signs a token carrying the account's identity, verification snapshot and role.
func (p *Provider) Issue(acc *domain.Account) (string, error) {
	now := p.now()
	claims := Claims{
		AccountID: acc.AccountID,
		Email:     acc.Email,
		Verified:  acc.Verified,
		Role:      acc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(p.secret)
	if err != nil {
		return "", domain.Internal("sign token", err)
	}
	return s, nil
}

// Validate checks signature, algorithm and expiry and returns the claims.
func (p *Provider) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("validate token: %w", domain.ErrTokenExpired)
		}
		return nil, fmt.Errorf("validate token: %w", domain.ErrMalformedToken)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == "" {
		return nil, fmt.Errorf("validate token: invalid claims: %w", domain.ErrMalformedToken)
	}
	return claims, nil
}
