package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable FromEnv reads, so the host environment
// cannot leak into a test. t.Setenv restores the old values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "DB_PATH", "SESSION_SECRET", "SESSION_STORE", "DATABASE_URL",
		"SESSION_TTL", "COOKIE_SECURE", "COOKIE_SAMESITE",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_CALLBACK_URL",
		"GOOGLE_AUTH_URL", "GOOGLE_TOKEN_URL", "GOOGLE_USERINFO_URL",
		"ADMIN_EMAILS", "POST_LOGIN_URL", "LOGIN_FAILURE_URL",
		"CONTACT_RATE_PER_MINUTE", "LOGIN_RATE_PER_MINUTE", "RATE_BURST",
		"TRUST_PROXY", "METRICS_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_DevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if c.Production() {
		t.Error("default env should be development")
	}
	if c.Port != 8080 {
		t.Errorf("Port = %d, want 8080", c.Port)
	}
	if c.SessionStore != SessionStoreMemory {
		t.Errorf("SessionStore = %q, want memory", c.SessionStore)
	}
	if c.SessionTTL != 7*24*time.Hour {
		t.Errorf("SessionTTL = %v, want one week", c.SessionTTL)
	}
	if c.CookieSecure || c.CookieSameSite != http.SameSiteLaxMode {
		t.Errorf("cookie = secure %v samesite %v, want insecure lax", c.CookieSecure, c.CookieSameSite)
	}
	if c.SessionSecret == "" {
		t.Error("development should fall back to a session secret")
	}
	if c.TrustProxy {
		t.Error("forwarded headers should not be trusted by default")
	}
	if c.MetricsPort != 9090 {
		t.Errorf("MetricsPort = %d, want 9090", c.MetricsPort)
	}
}

func TestFromEnv_Production(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("ADMIN_EMAILS", " owner@example.com, ,ops@example.com ")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if c.SessionStore != SessionStoreSQLite {
		t.Errorf("SessionStore = %q, want sqlite", c.SessionStore)
	}
	if !c.CookieSecure || c.CookieSameSite != http.SameSiteNoneMode {
		t.Errorf("cookie = secure %v samesite %v, want secure none", c.CookieSecure, c.CookieSameSite)
	}
	if len(c.AdminEmails) != 2 || c.AdminEmails[1] != "ops@example.com" {
		t.Errorf("AdminEmails = %q", c.AdminEmails)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"PORT": "eighty"}, "PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"bad ttl", map[string]string{"SESSION_TTL": "a week"}, "SESSION_TTL"},
		{"unknown store", map[string]string{"SESSION_STORE": "redis"}, "SESSION_STORE"},
		{"postgres without url", map[string]string{"SESSION_STORE": "postgres"}, "DATABASE_URL"},
		{"samesite none over http", map[string]string{"COOKIE_SAMESITE": "none"}, "COOKIE_SECURE"},
		{"production without secret", map[string]string{
			"APP_ENV": "production", "GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s",
		}, "SESSION_SECRET"},
		{"production without google", map[string]string{
			"APP_ENV": "production", "SESSION_SECRET": strings.Repeat("s", 32),
		}, "GOOGLE_CLIENT_ID"},
		{"unknown env", map[string]string{"APP_ENV": "staging"}, "APP_ENV"},
		{"bad trust proxy", map[string]string{"TRUST_PROXY": "sometimes"}, "TRUST_PROXY"},
		{"metrics on api port", map[string]string{"METRICS_PORT": "8080"}, "METRICS_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("FromEnv() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ReadsDotEnvWithoutOverriding(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DB_PATH")
	os.Unsetenv("PORT")
	t.Setenv("PORT", "9090")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\nDB_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Port != 9090 {
		t.Errorf("Port = %d, want the environment's 9090", c.Port)
	}
	if c.DBPath != "/tmp/from-dotenv.db" {
		t.Errorf("DBPath = %q, want the .env value", c.DBPath)
	}
}
