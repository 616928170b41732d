package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

var entropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// New returns an account id for the current instant.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID stamped with t. Ids minted within the same
// millisecond stay strictly increasing.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Time extracts the creation instant encoded in an id.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
