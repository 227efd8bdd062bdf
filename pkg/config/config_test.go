package config

import (
	"testing"
	"time"
)

func TestLoad_HTTPAddrFallsBackToPort(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.HTTPAddr)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("JWT_TTL", "90")

	cfg := Load()
	if cfg.HTTPAddr != ":8081" {
		t.Fatalf("expected :8081, got %q", cfg.HTTPAddr)
	}
	if cfg.Hotel.DefaultCurrency != "USD" {
		t.Fatalf("expected USD, got %q", cfg.Hotel.DefaultCurrency)
	}
	if cfg.Auth.JWTTTL != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.Auth.JWTTTL)
	}
}

func TestEnvList_TrimsAndDropsEmpty(t *testing.T) {
	t.Setenv("CORS_TEST", " http://a.test , ,http://b.test")
	got := envList("CORS_TEST", "")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLocation_UnknownZoneIsUTC(t *testing.T) {
	cfg := Config{Hotel: HotelConfig{Timezone: "Mars/Olympus"}}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC")
	}
}
