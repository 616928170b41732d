package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHash_UsesConfiguredCost(t *testing.T) {
	digest, err := NewHasher().Hash("Abcd123!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, Cost, cost)
}

func TestHash_IsSalted(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	d1, err := h.Hash("Abcd123!")
	require.NoError(t, err)
	d2, err := h.Hash("Abcd123!")
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestVerify_RoundTrip(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	for _, pw := range []string{"Abcd123!", "Zz9$longer-Password", "pässwörd-Ünicode1!"} {
		digest, err := h.Hash(pw)
		require.NoError(t, err)
		assert.True(t, h.Verify(pw, digest), pw)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	digest, err := h.Hash("Abcd123!")
	require.NoError(t, err)
	assert.False(t, h.Verify("Abcd123?", digest))
	assert.False(t, h.Verify("", digest))
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	assert.False(t, h.Verify("Abcd123!", "not-a-bcrypt-digest"))
	assert.False(t, h.Verify("Abcd123!", ""))
}

func TestHash_TooLong_ReturnsInternal(t *testing.T) {
	h := NewHasherWithCost(bcrypt.MinCost)
	digest, err := h.Hash(strings.Repeat("a", 73))
	require.Error(t, err)
	assert.Empty(t, digest)
	assert.True(t, errors.Is(err, domain.ErrInternal))
}
