package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken     string
	DatabaseURL       string
	HTTPPort          int
	HeartbeatInterval time.Duration
	LogLevel          string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:     strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPPort:          parsePort(strings.TrimSpace(os.Getenv("HTTP_PORT"))),
		HeartbeatInterval: parseHeartbeat(strings.TrimSpace(os.Getenv("HEARTBEAT_INTERVAL_MINUTES"))),
		LogLevel:          strings.TrimSpace(os.Getenv("LOG_LEVEL")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "dumpbot.db"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parsePort(raw string) int {
	if raw == "" {
		return 8080
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 8080
	}
	return port
}

// parseHeartbeat interprets the raw value as minutes. An explicit "0"
// disables the heartbeat; unparsable values fall back to the default.
func parseHeartbeat(raw string) time.Duration {
	if raw == "" {
		return 15 * time.Minute
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 0 {
		return 15 * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}
