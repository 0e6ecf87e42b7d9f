// Package config loads debugger configuration from TOML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable overrides applied after file loading.
const (
	envPort     = "SUDB_PORT"
	envLogLevel = "SUDB_LOG_LEVEL"
)

// ErrInvalidPort reports a port outside the TCP range.
var ErrInvalidPort = errors.New("port must be between 1 and 65535")

// Config is the debugger process configuration.
type Config struct {
	// Port is the network listener port.
	Port int `toml:"port"`

	// Remote enables the network front end.
	Remote bool `toml:"remote"`

	// Console enables the terminal front end.
	Console bool `toml:"console"`

	// LogLevel is the structured-log threshold (trace, debug, info, warn,
	// error).
	LogLevel string `toml:"log_level"`

	// Script is the program the demo engine executes.
	Script string `toml:"script"`

	// HistoryFile is the console readline history path.
	HistoryFile string `toml:"history_file"`
}

// Default returns the configuration used when no file is given: network
// front end on the standard port.
func Default() Config {
	return Config{
		Port:     1234,
		Remote:   true,
		Console:  false,
		LogLevel: "info",
	}
}

// Load reads a TOML configuration file over the defaults, applies
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return nil
}

var portSpecRe = regexp.MustCompile(`port=(\d+)`)

// ParsePortSpec extracts a "port=N" override from a front-end spec string
// such as "ide port=7777". ok is false when the spec carries no override.
func ParsePortSpec(spec string) (port int, ok bool) {
	m := portSpecRe.FindStringSubmatch(spec)
	if m == nil {
		return 0, false
	}
	port, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return port, true
}
