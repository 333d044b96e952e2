package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the planner.
type Config struct {
	DatabaseURL    string
	OwnerID        string
	ListenAddr     string // change-feed server address; empty disables it
	PeerURL        string // ws:// URL of another session to mirror from
	TelegramToken  string
	TelegramChatID int64
	ReminderTime   string // HH:MM for the daily agenda message
	ResyncInterval time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		OwnerID:        strings.TrimSpace(os.Getenv("OWNER_ID")),
		ListenAddr:     strings.TrimSpace(os.Getenv("LISTEN_ADDR")),
		PeerURL:        strings.TrimSpace(os.Getenv("PEER_URL")),
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		ReminderTime:   strings.TrimSpace(os.Getenv("REMINDER_TIME")),
		ResyncInterval: parseInterval(strings.TrimSpace(os.Getenv("RESYNC_INTERVAL_HOURS"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "planner.db"
	}
	if cfg.OwnerID == "" {
		cfg.OwnerID = "local"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "08:00"
	}

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
