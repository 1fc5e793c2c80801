// Package config loads and validates the bot configuration.
//
// Config files may be YAML or JSON; YAML is coerced to JSON so both go
// through the same strict decoder (unknown keys are rejected early).
// The bot token may come from the file or from the TELEGRAM_BOT_TOKEN
// environment variable; the environment wins. A missing token is fatal.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// EnvToken is the environment variable holding the bot credential.
const EnvToken = "TELEGRAM_BOT_TOKEN"

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Sweep    SweepConfig    `json:"sweep"`
	Notify   NotifyConfig   `json:"notify"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SweepConfig controls the fetch→diff→notify cycle.
//
// All durations are Go duration strings (e.g. "20s", "1h").
type SweepConfig struct {
	Interval     string `json:"interval,omitempty"`      // default "1h"
	StartupDelay string `json:"startup_delay,omitempty"` // default "10s"
	FetchTimeout string `json:"fetch_timeout,omitempty"` // default "20s"
}

type NotifyConfig struct {
	RatePerSec  int    `json:"rate_per_sec,omitempty"`  // default 10
	SendTimeout string `json:"send_timeout,omitempty"`  // default "10s"
}

// Default returns the built-in configuration (console logging, hourly
// sweep, ./duyurubot.db).
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Storage: StorageConfig{Path: "./duyurubot.db"},
	}
}

// Load reads, decodes and validates the config file. An empty path yields
// the defaults (the token must then come from the environment).
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		parsed, err := Parse(path, b)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg = parsed
	}

	if tok := strings.TrimSpace(os.Getenv(EnvToken)); tok != "" {
		cfg.Telegram.Token = tok
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes config bytes strictly.
func Parse(path string, data []byte) (*Config, error) {
	jb, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	// Reject trailing tokens (e.g. concatenated JSON).
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("trailing data after config")
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required (set telegram.token or %s)", EnvToken)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	// Surface bad duration strings at startup, not at first use.
	for _, d := range []struct{ name, val string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"sweep.interval", c.Sweep.Interval},
		{"sweep.startup_delay", c.Sweep.StartupDelay},
		{"sweep.fetch_timeout", c.Sweep.FetchTimeout},
		{"notify.send_timeout", c.Notify.SendTimeout},
	} {
		if _, err := Duration(d.val, 0); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// Duration parses a Go duration string, returning def for an empty value.
func Duration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// coerceToJSONBytes converts YAML config to JSON bytes so the strict JSON
// decoder (DisallowUnknownFields) serves both formats.
func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	jb, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %w", err)
	}
	return jb, nil
}
