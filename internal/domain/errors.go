package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrNoPendingCode      = errors.New("no pending code")
	ErrExpired            = errors.New("code expired")
	ErrInvalidCode        = errors.New("invalid code")
	ErrForbidden          = errors.New("forbidden")
	ErrDeliveryFailed     = errors.New("code delivery failed")
	ErrInternal           = errors.New("internal error")

	ErrTokenExpired   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed token")
)

// Internal wraps an unexpected collaborator failure. op names the operation so an
// operator can locate the failing call; err must not carry secrets.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}
