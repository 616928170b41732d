package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       string
	StoreDriver    string // "dynamo" | "memory"
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	Secrets        Secrets
	SMTPHost       string
	SMTPPort       string
	SMTPFrom       string
	SMTPUsername   string
	SMTPPassword   string
	SMTPTimeout    time.Duration
	SNSRegion      string
	SNSTopicARN    string   // empty disables lifecycle event publishing
	AllowedOrigins []string // CORS allowed origins
	AuthCookieTTL  time.Duration
	RateLimitRPS   int
	RateLimitBurst int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	AccountEmails string
}

// Secrets are the process-wide keys. They are read once at startup and passed
// explicitly to the token provider and the code hasher.
type Secrets struct {
	TokenSigning []byte
	CodeHMAC     []byte
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StoreDriver:    getEnv("STORE_DRIVER", "dynamo"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			AccountEmails: getEnv("DYNAMO_TABLE_ACCOUNT_EMAILS", "account_emails"),
		},
		Secrets: Secrets{
			TokenSigning: []byte(os.Getenv("JWT_SECRET")),
			CodeHMAC:     []byte(os.Getenv("HMAC_VERIFICATION_CODE_SECRET")),
		},
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPFrom:       getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPTimeout:    getEnvDuration("SMTP_TIMEOUT", 10*time.Second),
		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:    getEnv("SNS_TOPIC_ARN", ""),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AuthCookieTTL:  getEnvDuration("AUTH_COOKIE_TTL", 24*time.Hour),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// Validate reports configuration the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Secrets.TokenSigning) == 0 {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if len(c.Secrets.CodeHMAC) == 0 {
		errs = append(errs, errors.New("HMAC_VERIFICATION_CODE_SECRET is required"))
	}
	switch c.StoreDriver {
	case "dynamo", "memory":
	default:
		errs = append(errs, errors.New("STORE_DRIVER must be dynamo or memory"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
