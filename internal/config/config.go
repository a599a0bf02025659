// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// FrontendURL is the base URL email links point at.
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// TotpSkew is how many adjacent 30s TOTP periods to accept; default 1.
	TotpSkew int `mapstructure:"TOTP_SKEW"`

	// Rate limit tiers, requests per minute.
	RateLimitPublic int `mapstructure:"RATE_LIMIT_PUBLIC"`
	RateLimitUser   int `mapstructure:"RATE_LIMIT_USER"`
	RateLimitAPIKey int `mapstructure:"RATE_LIMIT_API_KEY"`

	// APIKeyCacheSize bounds the secret-to-key LRU; APIKeyCacheTTL its entry lifetime.
	APIKeyCacheSize int    `mapstructure:"API_KEY_CACHE_SIZE"`
	APIKeyCacheTTL  string `mapstructure:"API_KEY_CACHE_TTL"`

	// SMSLocalAPIKey is the API key for SMS Local (MFA OTP delivery).
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`

	// EmailAPIKey / EmailBaseURL / EmailFrom configure the transactional mailer.
	EmailAPIKey  string `mapstructure:"EMAIL_API_KEY"`
	EmailBaseURL string `mapstructure:"EMAIL_BASE_URL"`
	EmailFrom    string `mapstructure:"EMAIL_FROM"`

	// GeolocationBaseURL is the ip-api style lookup endpoint; empty disables lookups.
	GeolocationBaseURL string `mapstructure:"GEOLOCATION_BASE_URL"`

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("JWT_ISSUER", "newbie-auth")
	v.SetDefault("JWT_AUDIENCE", "newbie-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("TOTP_SKEW", 1)
	v.SetDefault("RATE_LIMIT_PUBLIC", 10)
	v.SetDefault("RATE_LIMIT_USER", 30)
	v.SetDefault("RATE_LIMIT_API_KEY", 60)
	v.SetDefault("API_KEY_CACHE_SIZE", 1000)
	v.SetDefault("API_KEY_CACHE_TTL", "1h")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("EMAIL_BASE_URL", "")
	v.SetDefault("EMAIL_FROM", "no-reply@example.com")
	v.SetDefault("GEOLOCATION_BASE_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.TotpSkew < 0 {
		return nil, errors.New("config: TOTP_SKEW must not be negative")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// APIKeyTTL parses APIKeyCacheTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) APIKeyTTL() time.Duration {
	d, err := time.ParseDuration(c.APIKeyCacheTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
