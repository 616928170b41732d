package domain

import "time"

// Lifecycle event types published after a state change has been persisted.
const (
	EventAccountCreated  = "account.created"
	EventAccountVerified = "account.verified"
	EventPasswordChanged = "password.changed"
	EventPasswordReset   = "password.reset"
)

// AccountEvent is the payload sent to downstream subscribers. It carries no secrets.
type AccountEvent struct {
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
