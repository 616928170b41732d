package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_COOKIE_TTL", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "dynamo", cfg.StoreDriver)
	assert.Equal(t, "accounts", cfg.DynamoTables.Accounts)
	assert.Equal(t, 24*time.Hour, cfg.AuthCookieTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("HMAC_VERIFICATION_CODE_SECRET", "hmac")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SMTP_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "20")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()
	assert.Equal(t, []byte("jwt"), cfg.Secrets.TokenSigning)
	assert.Equal(t, []byte("hmac"), cfg.Secrets.CodeHMAC)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 3*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, 20, cfg.RateLimitRPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	t.Setenv("SMTP_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, 10*time.Second, cfg.SMTPTimeout)
}

func TestValidate_MissingSecrets(t *testing.T) {
	cfg := &Config{StoreDriver: "memory"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "HMAC_VERIFICATION_CODE_SECRET")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{
		StoreDriver: "postgres",
		Secrets:     Secrets{TokenSigning: []byte("a"), CodeHMAC: []byte("b")},
	}
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")
}
