package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// CredentialsKey is the base64 32-byte key for at-rest credential
	// encryption. Optional unless RequireCredentialsKey is set.
	CredentialsKey        string
	RequireCredentialsKey bool

	// Lifecycle tuning.
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	WebhookTimeout time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("COURIER_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("COURIER_LOG_LEVEL", "info"),
		LogFormat: EnvString("COURIER_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("COURIER_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("COURIER_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("COURIER_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("COURIER_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("COURIER_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("COURIER_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("COURIER_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("COURIER_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("COURIER_DB_SCHEMA", "courier"),

		ReadinessRequireDB: EnvBool("COURIER_READINESS_REQUIRE_DB", false),

		CredentialsKey:        EnvString("COURIER_CREDENTIALS_KEY", ""),
		RequireCredentialsKey: EnvBool("COURIER_REQUIRE_CREDENTIALS_KEY", false),

		ReconnectDelay: EnvDuration("COURIER_RECONNECT_DELAY", 2*time.Second),
		DialTimeout:    EnvDuration("COURIER_DIAL_TIMEOUT", 30*time.Second),
		WebhookTimeout: EnvDuration("COURIER_WEBHOOK_TIMEOUT", 10*time.Second),
	}
}
