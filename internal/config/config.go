// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const insecureDefaultKey = "0000000000000000000000000000000000000000000000000000000000000000"

// Config holds the configuration for the HTTP API, the invite lifecycle, and
// the source provider client.
type Config struct {
	MetaDBPath        string // path to the SQLite metadata file
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (trusted TLS termination)
	EncryptionKey     string // 64-char hex string (32-byte AES key) for encrypting stored invite tokens
	JWTSecret         string // HS256 secret for session tokens
	SessionTTL        time.Duration
	LogLevel          string // debug, info, warn, error (default "info")
	Env               string // "development" (default) or "production"

	// Invite lifecycle
	InviteTTL       time.Duration // validity window for new invites (default 168h)
	InviteBaseURL   string        // base URL for mailed invite links
	InviteRetention time.Duration // terminal invites older than this are purged (default 90d)

	// Outbound mail; empty SMTPHost means deliveries are recorded in memory.
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPPassword string

	// Source provider; empty SourceAPIURL means the in-memory ACL is used.
	SourceAPIURL       string
	SourceCheckTimeout time.Duration

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Feature gates. Disabling denies the feature for everyone, admins
	// included.
	FeatureSharingEnabled bool
	FeatureInvitesEnabled bool

	// SeedFile optionally points at a YAML seed applied at startup.
	SeedFile string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:            os.Getenv("META_DB_PATH"),
		ListenAddr:            os.Getenv("LISTEN_ADDR"),
		TLSCertFile:           os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:            os.Getenv("TLS_KEY_FILE"),
		EncryptionKey:         os.Getenv("ENCRYPTION_KEY"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
		Env:                   os.Getenv("ENV"),
		InviteBaseURL:         os.Getenv("INVITE_BASE_URL"),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              os.Getenv("SMTP_PORT"),
		SMTPFrom:              os.Getenv("SMTP_FROM"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		SourceAPIURL:          os.Getenv("SOURCE_API_URL"),
		SeedFile:              os.Getenv("SEED_FILE"),
		FeatureSharingEnabled: parseBoolEnvDefault("FEATURE_SHARING_ENABLED", true),
		FeatureInvitesEnabled: parseBoolEnvDefault("FEATURE_INVITES_ENABLED", true),
	}

	for _, d := range []struct {
		key  string
		dst  *time.Duration
		name string
	}{
		{"SESSION_TTL", &cfg.SessionTTL, "session ttl"},
		{"INVITE_TTL", &cfg.InviteTTL, "invite ttl"},
		{"INVITE_RETENTION", &cfg.InviteRetention, "invite retention"},
		{"SOURCE_CHECK_TIMEOUT", &cfg.SourceCheckTimeout, "source check timeout"},
	} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", d.key, v, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if strings.EqualFold(os.Getenv("ALLOW_INSECURE_HTTP"), "true") {
		cfg.AllowInsecureHTTP = true
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "kbhub_meta.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.EncryptionKey == "" {
		cfg.EncryptionKey = insecureDefaultKey
		cfg.Warnings = append(cfg.Warnings, "ENCRYPTION_KEY not set — using insecure default. Set ENCRYPTION_KEY in production!")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-insecure-jwt-secret"
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set — using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.InviteBaseURL == "" {
		cfg.InviteBaseURL = "http://localhost:8080"
	}
	if cfg.InviteTTL == 0 {
		cfg.InviteTTL = 168 * time.Hour
	}
	if cfg.InviteRetention == 0 {
		cfg.InviteRetention = 90 * 24 * time.Hour
	}
	if cfg.SourceCheckTimeout == 0 {
		cfg.SourceCheckTimeout = 5 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.SourceAPIURL == "" {
		cfg.Warnings = append(cfg.Warnings, "SOURCE_API_URL not set — source access checks use the in-memory ACL")
	}
	if cfg.SMTPHost == "" {
		cfg.Warnings = append(cfg.Warnings, "SMTP_HOST not set — invite mail is recorded in memory, not delivered")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == "dev-insecure-jwt-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if cfg.EncryptionKey == insecureDefaultKey {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.TLSCertFile == "" && !cfg.AllowInsecureHTTP {
			return nil, fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
