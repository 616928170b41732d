package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-auth-nosql/internal/domain"
)

// AccountRepo is an in-process account store for development and tests.
// Records are copied on the way in and out, so callers only see changes they
// write through SaveCode or Update.
type AccountRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accountID, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	return clone(r.byID[accountID]), nil
}

func (r *AccountRepo) FindByID(_ context.Context, accountID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	return clone(a), nil
}

func (r *AccountRepo) Insert(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[a.Email]; taken {
		return fmt.Errorf("email %s: %w", a.Email, domain.ErrDuplicateAccount)
	}
	if _, taken := r.byID[a.AccountID]; taken {
		return fmt.Errorf("account %s: %w", a.AccountID, domain.ErrDuplicateAccount)
	}
	r.byID[a.AccountID] = *clone(*a)
	r.byEmail[a.Email] = a.AccountID
	return nil
}

// SaveCode stores code in the slot for purpose, replacing any earlier one. No
// other field of the account changes. An email verification code is refused
// once the account is verified.
func (r *AccountRepo) SaveCode(_ context.Context, accountID string, purpose domain.CodePurpose, code *domain.PendingCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	if purpose == domain.PurposeEmailVerification && cur.Verified {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrAlreadyVerified)
	}
	c := *code
	cur.SetSlot(purpose, &c)
	cur.UpdatedAt = code.IssuedAt
	r.byID[accountID] = cur
	return nil
}

// Update applies c to the stored account. A redemption whose slot no longer
// holds the expected hash fails with domain.ErrNoPendingCode.
func (r *AccountRepo) Update(_ context.Context, accountID string, c domain.AccountChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	if c.Redeem != "" {
		if p := cur.Slot(c.Redeem); p == nil || p.Hash != c.RedeemHash {
			return fmt.Errorf("account %s: %s code: %w", accountID, c.Redeem, domain.ErrNoPendingCode)
		}
	}
	cur.Apply(c)
	r.byID[accountID] = cur
	return nil
}

func clone(a domain.Account) *domain.Account {
	if a.EmailCode != nil {
		c := *a.EmailCode
		a.EmailCode = &c
	}
	if a.ResetCode != nil {
		c := *a.ResetCode
		a.ResetCode = &c
	}
	return &a
}
