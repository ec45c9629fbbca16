// Package config loads runtime settings from POLLBOARD_ environment
// variables with classroom-suited defaults.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration.
type Config struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	History   HistoryConfig
	Log       LogConfig
}

type HTTPConfig struct {
	Addr         string        `env:"POLLBOARD_HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"POLLBOARD_HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"POLLBOARD_HTTP_WRITE_TIMEOUT" envDefault:"30s"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `env:"POLLBOARD_WS_PING_INTERVAL" envDefault:"30s"`
	ReadTimeout  time.Duration `env:"POLLBOARD_WS_READ_TIMEOUT" envDefault:"60s"`
	SendBuffer   int           `env:"POLLBOARD_WS_SEND_BUFFER" envDefault:"64"`
}

// HistoryConfig selects where ended polls are kept. The memory backend
// loses history on restart; sqlite persists it.
type HistoryConfig struct {
	Backend    string `env:"POLLBOARD_HISTORY_BACKEND" envDefault:"memory"`
	SQLitePath string `env:"POLLBOARD_HISTORY_SQLITE_PATH" envDefault:"./pollboard.db"`
}

type LogConfig struct {
	Level  string `env:"POLLBOARD_LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"POLLBOARD_LOG_PRETTY" envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would fail at runtime.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http address cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.SendBuffer < 1 {
		return fmt.Errorf("websocket send buffer must be at least 1")
	}
	switch c.History.Backend {
	case "memory":
	case "sqlite":
		if c.History.SQLitePath == "" {
			return fmt.Errorf("sqlite history backend requires a database path")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	return nil
}
