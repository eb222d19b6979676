package api

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{}).Validate(); err != nil {
		t.Fatalf("open config rejected: %v", err)
	}
	if err := (Config{Token: "tk", RequireToken: true}).Validate(); err != nil {
		t.Fatalf("valid policy rejected: %v", err)
	}
	if err := (Config{RequireToken: true}).Validate(); err == nil {
		t.Fatal("require-token without a token accepted")
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("COURIER_API_TOKEN", "")
	t.Setenv("COURIER_REQUIRE_API_TOKEN", "")
	t.Setenv("COURIER_API_RATE_EVENTS", "")
	t.Setenv("COURIER_API_RATE_WINDOW", "")

	cfg := LoadConfigFromEnv()
	if cfg.Token != "" || cfg.RequireToken {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.MaxBodyBytes != defaultMaxBodyBytes || cfg.MaxMediaBodyBytes != defaultMediaBytes {
		t.Fatalf("body limits=%d/%d", cfg.MaxBodyBytes, cfg.MaxMediaBodyBytes)
	}
	if cfg.RateEvents != defaultRateEvents || cfg.RateWindow != defaultRateWindow {
		t.Fatalf("rate=%d/%v", cfg.RateEvents, cfg.RateWindow)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("COURIER_API_TOKEN", "  tk  ")
	t.Setenv("COURIER_REQUIRE_API_TOKEN", "true")
	t.Setenv("COURIER_API_MAX_BODY_BYTES", "2048")
	t.Setenv("COURIER_API_RATE_EVENTS", "5")
	t.Setenv("COURIER_API_RATE_WINDOW", "30s")

	cfg := LoadConfigFromEnv()
	if cfg.Token != "tk" {
		t.Fatalf("token=%q want=tk", cfg.Token)
	}
	if !cfg.RequireToken {
		t.Fatal("RequireToken=false want=true")
	}
	if cfg.MaxBodyBytes != 2048 {
		t.Fatalf("MaxBodyBytes=%d want=2048", cfg.MaxBodyBytes)
	}
	if cfg.RateEvents != 5 || cfg.RateWindow != 30*time.Second {
		t.Fatalf("rate=%d/%v", cfg.RateEvents, cfg.RateWindow)
	}
}

func TestLoadConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("COURIER_API_RATE_EVENTS", "-3")
	t.Setenv("COURIER_API_RATE_WINDOW", "soon")
	t.Setenv("COURIER_REQUIRE_API_TOKEN", "yep")

	cfg := LoadConfigFromEnv()
	if cfg.RateEvents != defaultRateEvents || cfg.RateWindow != defaultRateWindow {
		t.Fatalf("rate=%d/%v want defaults", cfg.RateEvents, cfg.RateWindow)
	}
	if cfg.RequireToken {
		t.Fatal("garbage bool parsed as true")
	}
}
