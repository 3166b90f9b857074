// Package config reads panel-api settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	DatabaseURL string
	AutoMigrate bool

	JWTSecret string
	TokenTTL  time.Duration
	// RedisAddr enables the shared token denylist. Empty keeps revocations
	// in process memory.
	RedisAddr string

	Limits Limits

	OTLPEndpoint     string
	OTLPInsecure     bool
	TraceSampleRatio float64
}

// Limits are token-bucket sizes, in requests per minute and burst.
type Limits struct {
	IPPerMinute     int
	IPBurst         int
	TenantPerMinute int
	TenantBurst     int
	LoginPerMinute  int
	LoginBurst      int
	// TrustedProxies is a comma list of CIDRs allowed to set
	// X-Forwarded-For. Empty trusts no one.
	TrustedProxies string
}

// Load reads the process environment. A .env file in the working
// directory, when present, fills variables that are not already set.
// Malformed numbers and booleans are reported rather than replaced by
// their defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	env := &reader{}
	cfg := Config{
		Port:            env.str("PANEL_PORT", "8080"),
		ReadTimeout:     env.seconds("HTTP_READ_TIMEOUT_SECONDS", 10),
		WriteTimeout:    env.seconds("HTTP_WRITE_TIMEOUT_SECONDS", 10),
		ShutdownTimeout: env.seconds("SHUTDOWN_TIMEOUT_SECONDS", 10),

		DatabaseURL: env.str("DB_DSN", ""),
		AutoMigrate: env.boolean("AUTO_MIGRATE", false),

		JWTSecret: env.str("PANEL_JWT_SECRET", ""),
		TokenTTL:  env.seconds("PANEL_TOKEN_TTL_SECONDS", 12*60*60),
		RedisAddr: env.str("PANEL_SESSION_REDIS_ADDR", ""),

		Limits: Limits{
			IPPerMinute:     env.integer("RATE_LIMIT_PER_MIN", 120),
			IPBurst:         env.integer("RATE_LIMIT_BURST", 30),
			TenantPerMinute: env.integer("TENANT_RATE_LIMIT_PER_MIN", 600),
			TenantBurst:     env.integer("TENANT_RATE_LIMIT_BURST", 120),
			LoginPerMinute:  env.integer("LOGIN_RATE_LIMIT_PER_MIN", 10),
			LoginBurst:      env.integer("LOGIN_RATE_LIMIT_BURST", 5),
			TrustedProxies:  env.str("TRUSTED_PROXIES", ""),
		},

		OTLPEndpoint:     env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:     env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSampleRatio: env.ratio("PANEL_TRACE_SAMPLE_RATIO", 1),
	}
	return cfg, errors.Join(env.errs...)
}

// ValidateServe checks what `panel-api` needs to serve, beyond what the
// maintenance subcommands need.
func (c Config) ValidateServe() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("PANEL_JWT_SECRET must be at least 16 bytes"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("PANEL_TOKEN_TTL_SECONDS must be positive"))
	}
	return errors.Join(errs...)
}

type reader struct {
	errs []error
}

func (r *reader) str(key, fallback string) string {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		return raw
	}
	return fallback
}

func (r *reader) integer(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return fallback
	}
	return value
}

func (r *reader) seconds(key string, fallback int) time.Duration {
	value := r.integer(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func (r *reader) boolean(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return fallback
	}
	return value
}

func (r *reader) ratio(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 || value > 1 {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a ratio between 0 and 1", key, raw))
		return fallback
	}
	return value
}
