// Package config implements the broker's line-oriented key/value
// configuration surface: one "key value" pair per line, "#" comments,
// invalid keys ignored.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config holds every recognized configuration key.
type Config struct {
	Port                  int
	WebsocketPort         int // 0 means disabled
	WebsocketDisabled     bool
	Host                  string
	PasswordFile          string
	AllowAnonymous        bool
	AllowZeroByteClientID bool
	BadgerDir             string // empty means the in-memory storage backend
}

// Default returns the broker's built-in defaults.
func Default() *Config {
	return &Config{
		Port:                  1883,
		WebsocketDisabled:     true,
		Host:                  "0.0.0.0",
		AllowAnonymous:        false,
		AllowZeroByteClientID: true,
	}
}

// Load reads filename's key/value pairs over Default(). A missing file is
// not an error; it returns the defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: open %s: %w", filename, err)
	}
	defer f.Close()

	cfg := Default()
	if err := parseInto(cfg, f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseInto(cfg *Config, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue // invalid keys are ignored
		}
		key, value := fields[0], strings.Join(fields[1:], " ")

		switch key {
		case "port":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.Port = n
			}
		case "websocket_port":
			if value == "disabled" {
				cfg.WebsocketDisabled = true
				cfg.WebsocketPort = 0
			} else if n, err := strconv.Atoi(value); err == nil {
				cfg.WebsocketDisabled = false
				cfg.WebsocketPort = n
			}
		case "host":
			cfg.Host = value
		case "password_file":
			cfg.PasswordFile = value
		case "badger_dir":
			cfg.BadgerDir = value
		case "allow_anonymous":
			if b, err := strconv.ParseBool(value); err == nil {
				cfg.AllowAnonymous = b
			}
		case "allow_zero_byte_client_id":
			if b, err := strconv.ParseBool(value); err == nil {
				cfg.AllowZeroByteClientID = b
			}
		default:
			// unknown keys are ignored, per the configuration surface contract
		}
	}
	return scanner.Err()
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if !c.WebsocketDisabled && (c.WebsocketPort <= 0 || c.WebsocketPort > 65535) {
		return fmt.Errorf("websocket_port must be in 1..65535 or 'disabled'")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if !c.AllowAnonymous && c.PasswordFile == "" {
		return fmt.Errorf("password_file is required when allow_anonymous is false")
	}
	return nil
}
