package app

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"COURIER_HTTP_ADDR",
		"COURIER_LOG_LEVEL",
		"COURIER_DATABASE_URL",
		"COURIER_DB_SCHEMA",
		"COURIER_RECONNECT_DELAY",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log config=%q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.DBSchema != "courier" {
		t.Fatalf("DBSchema=%q", cfg.DBSchema)
	}
	if cfg.ReconnectDelay != 2*time.Second {
		t.Fatalf("ReconnectDelay=%v want=2s", cfg.ReconnectDelay)
	}
	if cfg.DialTimeout != 30*time.Second || cfg.WebhookTimeout != 10*time.Second {
		t.Fatalf("timeouts=%v/%v", cfg.DialTimeout, cfg.WebhookTimeout)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("COURIER_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("COURIER_RECONNECT_DELAY", "500ms")
	t.Setenv("COURIER_DB_MAX_CONNS", "25")
	t.Setenv("COURIER_READINESS_REQUIRE_DB", "true")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9090" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.ReconnectDelay != 500*time.Millisecond {
		t.Fatalf("ReconnectDelay=%v", cfg.ReconnectDelay)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("DBMaxConns=%d", cfg.DBMaxConns)
	}
	if !cfg.ReadinessRequireDB {
		t.Fatal("ReadinessRequireDB=false want=true")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("T_STR", "  value  ")
	t.Setenv("T_BOOL", "true")
	t.Setenv("T_BOOL_BAD", "yep")
	t.Setenv("T_INT", "7")
	t.Setenv("T_INT_NEG", "-7")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_DUR_BAD", "soon")

	if got := EnvString("T_STR", "def"); got != "value" {
		t.Fatalf("EnvString=%q", got)
	}
	if got := EnvString("T_MISSING", "def"); got != "def" {
		t.Fatalf("EnvString default=%q", got)
	}
	if !EnvBool("T_BOOL", false) {
		t.Fatal("EnvBool=false want=true")
	}
	if EnvBool("T_BOOL_BAD", false) {
		t.Fatal("EnvBool parsed garbage as true")
	}
	if got := EnvInt("T_INT", 1); got != 7 {
		t.Fatalf("EnvInt=%d", got)
	}
	if got := EnvInt("T_INT_NEG", 1); got != 1 {
		t.Fatalf("EnvInt negative=%d want default", got)
	}
	if got := EnvInt32("T_INT", 1); got != 7 {
		t.Fatalf("EnvInt32=%d", got)
	}
	if got := EnvDuration("T_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("EnvDuration=%v", got)
	}
	if got := EnvDuration("T_DUR_BAD", time.Second); got != time.Second {
		t.Fatalf("EnvDuration garbage=%v want default", got)
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Parallel()

	goodKey := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	shortKey := base64.StdEncoding.EncodeToString([]byte("short"))

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"policy_off", Config{}, false},
		{"policy_off_with_key", Config{CredentialsKey: goodKey}, false},
		{"policy_on_valid", Config{RequireCredentialsKey: true, CredentialsKey: goodKey}, false},
		{"policy_on_missing", Config{RequireCredentialsKey: true}, true},
		{"policy_on_short", Config{RequireCredentialsKey: true, CredentialsKey: shortKey}, true},
		{"policy_on_garbage", Config{RequireCredentialsKey: true, CredentialsKey: "!!"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSecurityConfig(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
