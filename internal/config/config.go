// Package config loads application configuration from environment
// variables. Required values fail fast at startup; optional values
// fall back to sensible defaults.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. The token TTLs feed
// both the signed exp claims and the cookie Max-Age values so the
// two can never drift apart.
type Config struct {
	Env  string // application environment ("dev", "test", "production")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret        string // signs access tokens
	JWTRefreshSecret string // signs refresh tokens (distinct key)
	AccessTTLMin     int    // access token time-to-live in minutes
	RefreshTTLDays   int    // refresh token time-to-live in days
	BcryptCost       int    // bcrypt work factor

	ClientURL string // frontend origin for email links and OAuth redirects

	GoogleClientID     string // optional; Google flow disabled when empty
	GoogleClientSecret string
	OAuthCallbackURL   string // base URL this server is reachable at

	AppName   string
	EmailFrom string
	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
}

// Load reads configuration from the environment. Missing required
// variables abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:        must("JWT_SECRET"),
		JWTRefreshSecret: must("JWT_REFRESH_SECRET"),
		AccessTTLMin:     intDefault("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:   intDefault("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:       intDefault("BCRYPT_COST", 12),

		ClientURL: must("CLIENT_URL"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthCallbackURL:   os.Getenv("OAUTH_CALLBACK_URL"),

		AppName:   strDefault("APP_NAME", "Auth App"),
		EmailFrom: os.Getenv("EMAIL_FROM"),
		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPPort:  strDefault("SMTP_PORT", "587"),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
	}
}

// IsProduction reports whether secure cookie flags should be set.
func (c Config) IsProduction() bool { return c.Env == "production" }

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func strDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
