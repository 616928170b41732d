package codehash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHasher(t *testing.T, secret string) *Hasher {
	t.Helper()
	h, err := NewHasher([]byte(secret))
	require.NoError(t, err)
	return h
}

func TestNewHasher_EmptySecret(t *testing.T) {
	_, err := NewHasher(nil)
	assert.Error(t, err)
}

func TestHash_Deterministic(t *testing.T) {
	h := newHasher(t, "server-secret")
	assert.Equal(t, h.Hash("123456"), h.Hash("123456"))
	assert.Len(t, h.Hash("123456"), 64)
}

func TestHash_DependsOnSecret(t *testing.T) {
	a := newHasher(t, "secret-a")
	b := newHasher(t, "secret-b")
	assert.NotEqual(t, a.Hash("123456"), b.Hash("123456"))
}

func TestHash_DoesNotContainPlaintext(t *testing.T) {
	h := newHasher(t, "server-secret")
	assert.NotContains(t, h.Hash("654321"), "654321")
}

func TestHash_DistinctCodesDistinctDigests(t *testing.T) {
	h := newHasher(t, "server-secret")
	seen := make(map[string]string)
	for n := 100000; n < 102000; n++ {
		code := fmt.Sprintf("%d", n)
		d := h.Hash(code)
		prev, dup := seen[d]
		require.False(t, dup, "codes %s and %s collide", prev, code)
		seen[d] = code
	}
}

func TestEqual(t *testing.T) {
	h := newHasher(t, "server-secret")
	digest := h.Hash("123456")

	tests := []struct {
		name   string
		code   string
		digest string
		want   bool
	}{
		{"match", "123456", digest, true},
		{"wrong code", "123457", digest, false},
		{"not hex", "123456", "zz", false},
		{"empty digest", "123456", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Equal(tc.code, tc.digest))
		})
	}
}
