package password

import (
	"github.com/go-auth-nosql/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every stored password.
const Cost = 12

// Hasher hashes and verifies account passwords with bcrypt.
type Hasher struct {
	cost int
}

func NewHasher() *Hasher { return &Hasher{cost: Cost} }

// NewHasherWithCost is used by tests that cannot afford Cost on every signup.
func NewHasherWithCost(cost int) *Hasher { return &Hasher{cost: cost} }

// Hash returns a salted bcrypt digest of plaintext. Inputs bcrypt refuses
// (longer than 72 bytes) yield an error, never a digest.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", domain.Internal("hash password", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest never matches.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
