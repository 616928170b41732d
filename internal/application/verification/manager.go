package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/go-auth-nosql/internal/domain"
)

// CodeTTL is how long an issued code stays redeemable.
const CodeTTL = 5 * time.Minute

const (
	codeMin   = 100000
	codeRange = 900000
)

// Mailer delivers a message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (domain.Delivery, error)
}

// codeSaver writes a single code slot. It must leave the rest of the account as
// stored, since the mail round trip can overlap other changes to it.
type codeSaver interface {
	SaveCode(ctx context.Context, accountID string, purpose domain.CodePurpose, code *domain.PendingCode) error
}

type codeHasher interface {
	Hash(code string) string
	Equal(code, digest string) bool
}

// ManagerDeps holds the collaborators of Manager. Now and Generate default to the
// wall clock and a crypto/rand six digit code.
type ManagerDeps struct {
	Store    codeSaver
	Mailer   Mailer
	Codes    codeHasher
	Now      func() time.Time
	Generate func() (string, error)
}

// Manager issues and redeems the one-time codes kept on an account.
type Manager struct {
	store    codeSaver
	mailer   Mailer
	codes    codeHasher
	now      func() time.Time
	generate func() (string, error)
}

func NewManager(deps ManagerDeps) *Manager {
	m := &Manager{
		store:    deps.Store,
		mailer:   deps.Mailer,
		codes:    deps.Codes,
		now:      deps.Now,
		generate: deps.Generate,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.generate == nil {
		m.generate = GenerateCode
	}
	return m
}

// GenerateCode returns a uniformly random decimal code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// Issue generates a fresh code for purpose, mails it to the account and, once the
// server has accepted the recipient, stores the code hash in the slot. Any earlier
// code for the same purpose stops being redeemable.
func (m *Manager) Issue(ctx context.Context, acc *domain.Account, purpose domain.CodePurpose) error {
	if !domain.ValidPurpose(purpose) {
		return fmt.Errorf("unknown code purpose %q: %w", purpose, domain.ErrValidation)
	}
	if purpose == domain.PurposeEmailVerification && acc.Verified {
		return fmt.Errorf("issue verification code: %w", domain.ErrAlreadyVerified)
	}

	code, err := m.generate()
	if err != nil {
		return domain.Internal("generate code", err)
	}

	subject, body := message(purpose, code)
	delivery, err := m.mailer.Send(ctx, acc.Email, subject, body)
	if err != nil {
		slog.Warn("code delivery failed", "account_id", acc.AccountID, "purpose", purpose, "err", err)
		return fmt.Errorf("send %s code: %w", purpose, domain.ErrDeliveryFailed)
	}
	if !delivery.AcceptedBy(acc.Email) {
		slog.Warn("code recipient not accepted", "account_id", acc.AccountID, "purpose", purpose)
		return fmt.Errorf("send %s code: recipient rejected: %w", purpose, domain.ErrDeliveryFailed)
	}

	now := m.now()
	pending := &domain.PendingCode{Hash: m.codes.Hash(code), IssuedAt: now}
	if err := m.store.SaveCode(ctx, acc.AccountID, purpose, pending); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyVerified) {
			return fmt.Errorf("save issued code: %w", err)
		}
		return domain.Internal("save issued code", err)
	}
	acc.SetSlot(purpose, pending)
	acc.UpdatedAt = now
	return nil
}

// Consume redeems code against the slot for purpose. On success the slot is cleared
// and, for email verification, the account is marked verified. The change is made
// on acc only; the caller persists it.
func (m *Manager) Consume(acc *domain.Account, purpose domain.CodePurpose, code string) error {
	if !domain.ValidPurpose(purpose) {
		return fmt.Errorf("unknown code purpose %q: %w", purpose, domain.ErrValidation)
	}
	pending := acc.Slot(purpose)
	if pending == nil {
		return fmt.Errorf("consume %s code: %w", purpose, domain.ErrNoPendingCode)
	}
	now := m.now()
	if now.Sub(pending.IssuedAt) > CodeTTL {
		return fmt.Errorf("consume %s code: %w", purpose, domain.ErrExpired)
	}
	if !m.codes.Equal(code, pending.Hash) {
		return fmt.Errorf("consume %s code: %w", purpose, domain.ErrInvalidCode)
	}

	acc.SetSlot(purpose, nil)
	if purpose == domain.PurposeEmailVerification {
		acc.Verified = true
	}
	acc.UpdatedAt = now
	return nil
}

func message(purpose domain.CodePurpose, code string) (subject, body string) {
	if purpose == domain.PurposePasswordReset {
		return "Your Forgot Password Verification Code", "<h1>" + code + "</h1>"
	}
	return "Your Verification Code", "<h1>" + code + "</h1>"
}
