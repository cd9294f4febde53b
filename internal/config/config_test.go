package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/counseling")
	for _, key := range []string{"APP_TIMEZONE", "LEAD_TIME", "FOLLOW_UP_LEAD_TIME", "LOOKAHEAD_DAYS", "SLOT_DURATION", "CALENDAR_MARKER", "REDIS_URL", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Location.String() != "America/Lima" {
		t.Fatalf("location = %s", cfg.Location)
	}
	if cfg.LeadTime != 48*time.Hour || cfg.FollowUpLeadTime != 24*time.Hour || cfg.SlotDuration != time.Hour {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.LookaheadDays != 15 || cfg.CalendarMarker != "CITAS" {
		t.Fatalf("unexpected policy: %+v", cfg)
	}
	if cfg.RedisEnabled() {
		t.Fatalf("redis should be disabled without an address")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/counseling")
	t.Setenv("APP_TIMEZONE", "America/Bogota")
	t.Setenv("LEAD_TIME", "72h")
	t.Setenv("FOLLOW_UP_LEAD_TIME", "3600")
	t.Setenv("LOOKAHEAD_DAYS", "30")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Location.String() != "America/Bogota" || cfg.LeadTime != 72*time.Hour || cfg.FollowUpLeadTime != time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LookaheadDays != 30 || !cfg.RedisEnabled() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without POSTGRES_DSN")
	}

	t.Setenv("POSTGRES_DSN", "postgres://localhost/counseling")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
