package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvToken, "")
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
logging:
  level: debug
  console: true
  file:
    enabled: false
storage:
  path: "./bot.db"
sweep:
  interval: "30m"
notify:
  rate_per_sec: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Sweep.Interval != "30m" || cfg.Notify.RatePerSec != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	iv, err := Duration(cfg.Sweep.Interval, time.Hour)
	if err != nil || iv != 30*time.Minute {
		t.Fatalf("Duration = %v, %v", iv, err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(EnvToken, "123:abc")
	path := writeFile(t, "config.json", `{"telegram": {"token": "x", "webhook": true}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvTokenOverridesFile(t *testing.T) {
	t.Setenv(EnvToken, "456:env")
	path := writeFile(t, "config.json", `{"telegram": {"token": "123:file"}, "storage": {"path": "./x.db"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "456:env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
}

func TestMissingTokenIsFatal(t *testing.T) {
	t.Setenv(EnvToken, "")
	path := writeFile(t, "config.json", `{"storage": {"path": "./x.db"}}`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestBadDurationIsFatal(t *testing.T) {
	t.Setenv(EnvToken, "123:abc")
	path := writeFile(t, "config.json", `{"sweep": {"interval": "soon"}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestDurationDefaults(t *testing.T) {
	t.Parallel()
	d, err := Duration("", 20*time.Second)
	if err != nil || d != 20*time.Second {
		t.Fatalf("Duration(\"\") = %v, %v", d, err)
	}
	if _, err := Duration("5 parsecs", 0); err == nil {
		t.Fatal("expected parse error")
	}
}
