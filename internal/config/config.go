// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the bot service.
type Config struct {
	DatabaseURL string
	RedisURL    string
	BotToken    string

	LogLevel  string // debug | info | warn | error
	LogFormat string // text | json

	// DraftTTLHours > 0 enables idle-draft expiry. 0 keeps drafts forever,
	// which is the default behaviour.
	DraftTTLHours      int
	SweepIntervalHours int // how often the expiry sweep fires
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	ttl := 0
	if s := os.Getenv("DRAFT_TTL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("DRAFT_TTL_HOURS must be a non-negative integer, got %q", s)
		}
		ttl = v
	}

	sweep := 6
	if s := os.Getenv("SWEEP_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SWEEP_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		sweep = v
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "text"
	}

	return &Config{
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		BotToken:           botToken,
		LogLevel:           level,
		LogFormat:          format,
		DraftTTLHours:      ttl,
		SweepIntervalHours: sweep,
	}, nil
}
