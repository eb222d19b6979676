package api

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxBodyBytes = 1 << 20 // 1 MiB; media payloads are base64 in-body
	defaultMediaBytes   = 16 << 20

	defaultRateEvents = 60
	defaultRateWindow = 10 * time.Second
)

// Config contains API-layer configuration loaded from environment variables.
type Config struct {
	// Token guards all /v1 endpoints when set (Bearer auth).
	// Empty means open access: acceptable for dev only.
	Token string

	// RequireToken makes an empty Token a startup error.
	RequireToken bool

	MaxBodyBytes      int64
	MaxMediaBodyBytes int64

	// Send-endpoint rate limit, per client address.
	RateEvents int
	RateWindow time.Duration
}

// LoadConfigFromEnv loads API config with defaults.
func LoadConfigFromEnv() Config {
	return Config{
		Token:             strings.TrimSpace(os.Getenv("COURIER_API_TOKEN")),
		RequireToken:      envBoolAPI("COURIER_REQUIRE_API_TOKEN", false),
		MaxBodyBytes:      envInt64API("COURIER_API_MAX_BODY_BYTES", defaultMaxBodyBytes),
		MaxMediaBodyBytes: envInt64API("COURIER_API_MAX_MEDIA_BODY_BYTES", defaultMediaBytes),
		RateEvents:        envIntAPI("COURIER_API_RATE_EVENTS", defaultRateEvents),
		RateWindow:        envDurationAPI("COURIER_API_RATE_WINDOW", defaultRateWindow),
	}
}

// Validate enforces the auth policy at startup.
// Fail-fast is intentional: silently running an open API under a
// require-token policy is unacceptable.
func (c Config) Validate() error {
	if c.RequireToken && c.Token == "" {
		return errors.New("api policy: COURIER_REQUIRE_API_TOKEN=true but COURIER_API_TOKEN is missing")
	}
	return nil
}

// ---- env helpers ----

func envBoolAPI(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envIntAPI(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64API(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDurationAPI(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
