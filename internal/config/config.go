// Package config loads process configuration from the environment, with
// an optional .env file for development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the binaries read.
type Config struct {
	// ListenAddr is the table server's HTTP listen address.
	ListenAddr string

	// RevealDelay paces the bottom-card reveal after landlord assignment.
	RevealDelay time.Duration
	// RestartDelay is the post-round-over display window.
	RestartDelay time.Duration

	// BotFillDelay is how long a table waits before seating bots in
	// empty positions.
	BotFillDelay time.Duration
	// BotTurnDelay paces automated plays so matches stay watchable.
	BotTurnDelay time.Duration
}

// Load reads the environment, consulting .env first when present.
func Load() Config {
	_ = godotenv.Load() // missing .env is fine

	return Config{
		ListenAddr:   envString("LANDLORD_LISTEN_ADDR", ":8080"),
		RevealDelay:  envDuration("LANDLORD_REVEAL_DELAY", 1500*time.Millisecond),
		RestartDelay: envDuration("LANDLORD_RESTART_DELAY", 3*time.Second),
		BotFillDelay: envDuration("LANDLORD_BOT_FILL_DELAY", 2*time.Second),
		BotTurnDelay: envDuration("LANDLORD_BOT_TURN_DELAY", 500*time.Millisecond),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
