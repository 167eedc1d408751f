// Package config reads the server configuration from environment variables.
//
// A .env file in the working directory is loaded first when present. Values
// already set in the environment win over the file, so production settings
// are never shadowed by a stray .env.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store backends.
const (
	SessionStoreMemory   = "memory"
	SessionStoreSQLite   = "sqlite"
	SessionStorePostgres = "postgres"
)

// Config is the complete server configuration.
type Config struct {
	Env    string // NODE_ENV-style switch: development or production
	Port   int
	DBPath string

	SessionSecret  string
	SessionStore   string // memory, sqlite or postgres
	DatabaseURL    string // Postgres DSN, used when SessionStore is postgres
	SessionTTL     time.Duration
	CookieSecure   bool
	CookieSameSite http.SameSite

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	GoogleAuthURL      string // overrides for tests and local fakes
	GoogleTokenURL     string
	GoogleUserInfoURL  string

	AdminEmails []string

	PostLoginURL string
	FailureURL   string

	ContactRatePerMinute float64
	LoginRatePerMinute   float64
	RateBurst            int

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP. Only
	// enable it behind a proxy that overwrites those headers.
	TrustProxy bool

	// MetricsPort serves /metrics on a separate listener; 0 disables it.
	MetricsPort int
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("config: loading .env: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error

	env := getEnv("APP_ENV", EnvDevelopment)
	prod := env == EnvProduction

	// Production defaults mirror the hosted deployment: durable sessions and
	// cross-site capable, HTTPS-only cookies.
	defaultStore := SessionStoreMemory
	defaultSameSite := "lax"
	if prod {
		defaultStore = SessionStoreSQLite
		defaultSameSite = "none"
	}

	c := &Config{
		Env:                env,
		DBPath:             getEnv("DB_PATH", "data/storefront.db"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SessionStore:       strings.ToLower(getEnv("SESSION_STORE", defaultStore)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/api/auth/google/callback"),
		GoogleAuthURL:      os.Getenv("GOOGLE_AUTH_URL"),
		GoogleTokenURL:     os.Getenv("GOOGLE_TOKEN_URL"),
		GoogleUserInfoURL:  os.Getenv("GOOGLE_USERINFO_URL"),
		AdminEmails:        splitList(os.Getenv("ADMIN_EMAILS")),
		PostLoginURL:       getEnv("POST_LOGIN_URL", "/"),
		FailureURL:         getEnv("LOGIN_FAILURE_URL", "/login"),
	}

	c.Port = intEnv("PORT", 8080, &errs)
	c.SessionTTL = durationEnv("SESSION_TTL", 7*24*time.Hour, &errs)
	c.CookieSecure = boolEnv("COOKIE_SECURE", prod, &errs)
	c.ContactRatePerMinute = floatEnv("CONTACT_RATE_PER_MINUTE", 5, &errs)
	c.LoginRatePerMinute = floatEnv("LOGIN_RATE_PER_MINUTE", 20, &errs)
	c.RateBurst = intEnv("RATE_BURST", 5, &errs)
	c.TrustProxy = boolEnv("TRUST_PROXY", false, &errs)
	c.MetricsPort = intEnv("METRICS_PORT", 9090, &errs)

	sameSite, err := parseSameSite(getEnv("COOKIE_SAMESITE", defaultSameSite))
	if err != nil {
		errs = append(errs, err)
	}
	c.CookieSameSite = sameSite

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field rules. Production refuses to start without a
// real secret and Google credentials; development falls back to a fixed
// secret so `go run` works out of the box.
func (c *Config) Validate() error {
	var errs []error

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("config: APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("config: METRICS_PORT must be between 0 and 65535, got %d", c.MetricsPort))
	} else if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		errs = append(errs, errors.New("config: METRICS_PORT must differ from PORT"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("config: SESSION_TTL must be positive"))
	}

	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreSQLite:
	case SessionStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required when SESSION_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore))
	}

	if c.CookieSameSite == http.SameSiteNoneMode && !c.CookieSecure {
		errs = append(errs, errors.New("config: COOKIE_SAMESITE=none requires COOKIE_SECURE=true"))
	}
	if c.RateBurst <= 0 {
		errs = append(errs, errors.New("config: RATE_BURST must be positive"))
	}

	if c.Production() {
		if len(c.SessionSecret) < 32 {
			errs = append(errs, errors.New("config: SESSION_SECRET must be at least 32 characters in production"))
		}
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			errs = append(errs, errors.New("config: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required in production"))
		}
	} else if c.SessionSecret == "" {
		c.SessionSecret = "development-only-session-secret"
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int, errs *[]error) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be an integer, got %q", key, raw))
		return fallback
	}
	return v
}

func floatEnv(key string, fallback float64, errs *[]error) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("config: %s must be a positive number, got %q", key, raw))
		return fallback
	}
	return v
}

func boolEnv(key string, fallback bool, errs *[]error) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be true or false, got %q", key, raw))
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s must be a duration like 168h, got %q", key, raw))
		return fallback
	}
	return v
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("config: COOKIE_SAMESITE must be lax, strict or none, got %q", s)
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
