// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	Addr    string `yaml:"addr"`
	Dialogs string `yaml:"dialogs"`
	// Root, when set, overrides the root dialog declared by the dialog file.
	Root     string       `yaml:"root"`
	LogLevel string       `yaml:"log_level"`
	Turn     TurnConfig   `yaml:"turn"`
	Redis    *RedisConfig `yaml:"redis"`
	MCP      MCPConfig    `yaml:"mcp"`
}

// TurnConfig tunes per-turn behavior.
type TurnConfig struct {
	InterruptionThreshold float64       `yaml:"interruption_threshold"`
	CallTimeout           time.Duration `yaml:"call_timeout"`
}

// RedisConfig selects the Redis state store. When absent, state is held
// in memory and lost on restart.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MCPConfig tunes the MCP adapter.
type MCPConfig struct {
	SSEPort int `yaml:"sse_port"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Turn: TurnConfig{
			InterruptionThreshold: 0.5,
			CallTimeout:           10 * time.Second,
		},
	}
}

// Load reads a YAML configuration file, layered over the defaults. A missing
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.Turn.InterruptionThreshold < 0 || c.Turn.InterruptionThreshold > 1 {
		return fmt.Errorf("config: interruption_threshold must be within [0, 1]")
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr must not be empty when redis is set")
	}
	return nil
}
