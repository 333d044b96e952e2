package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "OWNER_ID", "LISTEN_ADDR", "PEER_URL",
		"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "REMINDER_TIME", "RESYNC_INTERVAL_HOURS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "planner.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.OwnerID != "local" {
		t.Errorf("OwnerID = %q", cfg.OwnerID)
	}
	if cfg.ReminderTime != "08:00" {
		t.Errorf("ReminderTime = %q", cfg.ReminderTime)
	}
	if cfg.ResyncInterval != 0 {
		t.Errorf("ResyncInterval = %v, want disabled", cfg.ResyncInterval)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "data/planner.db")
	t.Setenv("OWNER_ID", "alice")
	t.Setenv("RESYNC_INTERVAL_HOURS", "6")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OwnerID != "alice" || cfg.DatabaseURL != "data/planner.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ResyncInterval != 6*time.Hour {
		t.Errorf("ResyncInterval = %v", cfg.ResyncInterval)
	}
	if cfg.TelegramChatID != 12345 {
		t.Errorf("TelegramChatID = %d", cfg.TelegramChatID)
	}
}

func TestLoadTelegramNeedsChatID(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "tok")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when token is set without chat id")
	}
}

func TestLoadBadChatID(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed chat id")
	}
}

func TestParseIntervalIgnoresGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "-3", "0"} {
		if got := parseInterval(raw); got != 0 {
			t.Errorf("parseInterval(%q) = %v, want 0", raw, got)
		}
	}
	if got := parseInterval("2"); got != 2*time.Hour {
		t.Errorf("parseInterval(2) = %v", got)
	}
}
