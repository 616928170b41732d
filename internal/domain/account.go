package domain

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// AccountState is the verification state of an account. Verified accounts never revert.
type AccountState string

const (
	StateUnverified AccountState = "unverified"
	StateVerified   AccountState = "verified"
)

// CodePurpose selects which one-time-code slot of an account an operation targets.
type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "email_verification"
	PurposePasswordReset     CodePurpose = "password_reset"
)

// PendingCode is an issued, not yet consumed one-time code. Only the keyed hash
// of the plaintext is kept. A nil *PendingCode is an empty slot.
type PendingCode struct {
	Hash     string    `dynamodbav:"hash"`
	IssuedAt time.Time `dynamodbav:"issued_at"`
}

// Account is the full internal record held by the store. Handlers respond with
// Public, never with the record itself.
type Account struct {
	AccountID    string       `json:"id" dynamodbav:"account_id"`
	Email        string       `json:"email" dynamodbav:"email"`
	PasswordHash string       `json:"-" dynamodbav:"password_hash"`
	Verified     bool         `json:"verified" dynamodbav:"verified"`
	Role         string       `json:"role" dynamodbav:"role"`
	EmailCode    *PendingCode `json:"-" dynamodbav:"email_code,omitempty"`
	ResetCode    *PendingCode `json:"-" dynamodbav:"reset_code,omitempty"`
	CreatedAt    time.Time    `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time    `json:"updated" dynamodbav:"updated_at"`
}

// PublicAccount is the client-facing projection of an Account.
type PublicAccount struct {
	AccountID string    `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

func (a *Account) State() AccountState {
	if a.Verified {
		return StateVerified
	}
	return StateUnverified
}

func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		AccountID: a.AccountID,
		Email:     a.Email,
		Verified:  a.Verified,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Slot returns the pending code stored for purpose, or nil when the slot is empty.
func (a *Account) Slot(purpose CodePurpose) *PendingCode {
	switch purpose {
	case PurposeEmailVerification:
		return a.EmailCode
	case PurposePasswordReset:
		return a.ResetCode
	}
	return nil
}

// SetSlot replaces the code slot for purpose. Passing nil clears it.
func (a *Account) SetSlot(purpose CodePurpose, code *PendingCode) {
	switch purpose {
	case PurposeEmailVerification:
		a.EmailCode = code
	case PurposePasswordReset:
		a.ResetCode = code
	}
}

// ValidPurpose reports whether p names one of the two code slots.
func ValidPurpose(p CodePurpose) bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// Principal is the identity asserted by a validated session token. It is a
// snapshot of the account at signin and may be stale.
type Principal struct {
	AccountID string
	Email     string
	Verified  bool
	Role      string
}

// AccountChange is a partial write to a stored account. Fields left at their
// zero value are not touched, so concurrent changes to other fields survive.
// When Redeem names a slot, the write clears it and only succeeds while the slot
// still holds RedeemHash.
type AccountChange struct {
	PasswordHash string
	MarkVerified bool
	Redeem       CodePurpose
	RedeemHash   string
	UpdatedAt    time.Time
}

// Redemption is the change that clears the slot for purpose after pending was
// consumed. Redeeming an email verification code also marks the account verified.
func Redemption(purpose CodePurpose, pending *PendingCode, at time.Time) AccountChange {
	c := AccountChange{Redeem: purpose, UpdatedAt: at}
	if pending != nil {
		c.RedeemHash = pending.Hash
	}
	if purpose == PurposeEmailVerification {
		c.MarkVerified = true
	}
	return c
}

// Apply writes the fields set on c into a.
func (a *Account) Apply(c AccountChange) {
	if c.PasswordHash != "" {
		a.PasswordHash = c.PasswordHash
	}
	if c.MarkVerified {
		a.Verified = true
	}
	if c.Redeem != "" {
		a.SetSlot(c.Redeem, nil)
	}
	a.UpdatedAt = c.UpdatedAt
}
