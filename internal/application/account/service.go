package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-auth-nosql/internal/pkg/id"
	"github.com/go-auth-nosql/internal/pkg/validate"
)

// Store is the record store the lifecycle runs against. Lookups by email expect
// the normalised address. Insert fails with domain.ErrDuplicateAccount when the
// email is taken. SaveCode and Update write only the fields they name and fail
// with domain.ErrNotFound for an unknown account; an Update that redeems a code
// fails with domain.ErrNoPendingCode once that code is gone.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, accountID string) (*domain.Account, error)
	Insert(ctx context.Context, a *domain.Account) error
	SaveCode(ctx context.Context, accountID string, purpose domain.CodePurpose, code *domain.PendingCode) error
	Update(ctx context.Context, accountID string, c domain.AccountChange) error
}

// Publisher receives lifecycle events after the change they describe is stored.
type Publisher interface {
	Publish(ctx context.Context, e domain.AccountEvent) error
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type tokenIssuer interface {
	Issue(a *domain.Account) (string, error)
}

type codeManager interface {
	Issue(ctx context.Context, a *domain.Account, purpose domain.CodePurpose) error
	Consume(a *domain.Account, purpose domain.CodePurpose, code string) error
}

// SigninResult is returned by a successful signin. Bearer is the value clients
// send back in the Authorization cookie or header.
type SigninResult struct {
	Token   string
	Bearer  string
	Account *domain.PublicAccount
}

type Service interface {
	Signup(ctx context.Context, email, password string) (*domain.PublicAccount, error)
	Signin(ctx context.Context, email, password string) (*SigninResult, error)
	Signout(ctx context.Context, accountID string)
	RequestEmailVerification(ctx context.Context, accountID string) error
	VerifyEmail(ctx context.Context, accountID, code string) error
	ChangePassword(ctx context.Context, p domain.Principal, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// ServiceDeps holds the collaborators of the account service. Events may be nil.
type ServiceDeps struct {
	Store  Store
	Hasher passwordHasher
	Tokens tokenIssuer
	Codes  codeManager
	Events Publisher
	Now    func() time.Time
	NewID  func(time.Time) string
}

type service struct {
	store  Store
	hasher passwordHasher
	tokens tokenIssuer
	codes  codeManager
	events Publisher
	now    func() time.Time
	newID  func(time.Time) string
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:  deps.Store,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		codes:  deps.Codes,
		events: deps.Events,
		now:    deps.Now,
		newID:  deps.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = id.NewAt
	}
	return s
}

type signupInput struct {
	Email    string `validate:"required,email,min=6,max=60"`
	Password string `validate:"required,max=72,password_policy"`
}

type signinInput struct {
	Email    string `validate:"required,email,min=6,max=60"`
	Password string `validate:"required,max=72"`
}

type emailInput struct {
	Email string `validate:"required,email,min=6,max=60"`
}

type newPasswordInput struct {
	NewPassword string `validate:"required,max=72,password_policy"`
}

type resetInput struct {
	Email       string `validate:"required,email,min=6,max=60"`
	Code        string `validate:"required"`
	NewPassword string `validate:"required,max=72,password_policy"`
}

func (s *service) Signup(ctx context.Context, email, password string) (*domain.PublicAccount, error) {
	in := signupInput{Email: validate.NormalizeEmail(email), Password: password}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	acc := &domain.Account{
		AccountID:    s.newID(now),
		Email:        in.Email,
		PasswordHash: digest,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, acc); err != nil {
		return nil, storeErr("insert account", err)
	}
	s.publish(ctx, domain.EventAccountCreated, acc)
	return acc.Public(), nil
}

func (s *service) Signin(ctx context.Context, email, password string) (*SigninResult, error) {
	in := signinInput{Email: validate.NormalizeEmail(email), Password: password}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}

	acc, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeErr("find account", err)
	}
	if !s.hasher.Verify(in.Password, acc.PasswordHash) {
		return nil, fmt.Errorf("signin: %w", domain.ErrInvalidCredentials)
	}
	token, err := s.tokens.Issue(acc)
	if err != nil {
		return nil, err
	}
	return &SigninResult{Token: token, Bearer: "Bearer " + token, Account: acc.Public()}, nil
}

// Signout keeps no server state. Tokens stay valid until they expire.
func (s *service) Signout(_ context.Context, accountID string) {
	slog.Debug("account signed out", "account_id", accountID)
}

func (s *service) RequestEmailVerification(ctx context.Context, accountID string) error {
	acc, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return storeErr("find account", err)
	}
	return s.codes.Issue(ctx, acc, domain.PurposeEmailVerification)
}

func (s *service) VerifyEmail(ctx context.Context, accountID, code string) error {
	acc, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return storeErr("find account", err)
	}
	pending := acc.Slot(domain.PurposeEmailVerification)
	if err := s.codes.Consume(acc, domain.PurposeEmailVerification, code); err != nil {
		return err
	}
	change := domain.Redemption(domain.PurposeEmailVerification, pending, acc.UpdatedAt)
	if err := s.store.Update(ctx, acc.AccountID, change); err != nil {
		return storeErr("save verified account", err)
	}
	s.publish(ctx, domain.EventAccountVerified, acc)
	return nil
}

func (s *service) ChangePassword(ctx context.Context, p domain.Principal, oldPassword, newPassword string) error {
	if !p.Verified {
		return fmt.Errorf("change password: account not verified: %w", domain.ErrForbidden)
	}
	if oldPassword == "" {
		return fmt.Errorf("field 'OldPassword' failed 'required': %w", domain.ErrValidation)
	}
	if err := validate.Struct(newPasswordInput{NewPassword: newPassword}); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}

	acc, err := s.store.FindByID(ctx, p.AccountID)
	if err != nil {
		return storeErr("find account", err)
	}
	if !s.hasher.Verify(oldPassword, acc.PasswordHash) {
		return fmt.Errorf("change password: %w", domain.ErrInvalidCredentials)
	}
	if err := s.replacePassword(ctx, acc, newPassword, domain.AccountChange{}); err != nil {
		return err
	}
	s.publish(ctx, domain.EventPasswordChanged, acc)
	return nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	in := emailInput{Email: validate.NormalizeEmail(email)}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	acc, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return storeErr("find account", err)
	}
	return s.codes.Issue(ctx, acc, domain.PurposePasswordReset)
}

func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	in := resetInput{Email: validate.NormalizeEmail(email), Code: code, NewPassword: newPassword}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrValidation)
	}
	acc, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		return storeErr("find account", err)
	}
	pending := acc.Slot(domain.PurposePasswordReset)
	if err := s.codes.Consume(acc, domain.PurposePasswordReset, in.Code); err != nil {
		return err
	}
	redeem := domain.Redemption(domain.PurposePasswordReset, pending, acc.UpdatedAt)
	if err := s.replacePassword(ctx, acc, in.NewPassword, redeem); err != nil {
		return err
	}
	s.publish(ctx, domain.EventPasswordReset, acc)
	return nil
}

// replacePassword hashes plaintext into acc and stores it together with change
// in a single write.
func (s *service) replacePassword(ctx context.Context, acc *domain.Account, plaintext string, change domain.AccountChange) error {
	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	acc.PasswordHash = digest
	acc.UpdatedAt = s.now().UTC()
	change.PasswordHash = digest
	change.UpdatedAt = acc.UpdatedAt
	if err := s.store.Update(ctx, acc.AccountID, change); err != nil {
		return storeErr("save password", err)
	}
	return nil
}

func (s *service) publish(ctx context.Context, eventType string, acc *domain.Account) {
	if s.events == nil {
		return
	}
	e := domain.AccountEvent{
		Type:       eventType,
		AccountID:  acc.AccountID,
		Email:      acc.Email,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, e); err != nil {
		slog.Warn("failed to publish account event", "type", eventType, "account_id", acc.AccountID, "err", err)
	}
}

// storeErr passes the store's domain sentinels through and folds anything
// else into domain.ErrInternal.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrDuplicateAccount) ||
		errors.Is(err, domain.ErrNoPendingCode) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.Internal(op, err)
}
