package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings, sourced from environment variables
// (optionally seeded from a .env file by main).
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HistoryLimit bounds each room's replayable message history.
	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"100"`

	// MaxAttachmentBytes caps the raw size of an attachment payload.
	MaxAttachmentBytes int64 `env:"MAX_ATTACHMENT_BYTES" envDefault:"1048576"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ReadLimit is the transport read limit: enough headroom for the largest
// allowed attachment after base64 expansion plus envelope framing.
func (c Config) ReadLimit() int64 {
	return c.MaxAttachmentBytes*2 + 4096
}
