package codehash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Hasher computes keyed fingerprints of one-time codes so only the digest is stored.
type Hasher struct {
	secret []byte
}

// NewHasher returns a Hasher keyed with secret. The slice is copied.
func NewHasher(secret []byte) (*Hasher, error) {
	if len(secret) == 0 {
		return nil, errors.New("code hmac secret is empty")
	}
	return &Hasher{secret: append([]byte(nil), secret...)}, nil
}

// Hash returns the hex HMAC-SHA256 of code.
func (h *Hasher) Hash(code string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal reports whether code hashes to digest, comparing in constant time.
func (h *Hasher) Equal(code, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(code))
	return hmac.Equal(mac.Sum(nil), want)
}
