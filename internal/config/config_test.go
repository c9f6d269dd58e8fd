//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		path := writeConfig(t, `
bot:
  token: "123:abc"
telegram_api:
  app_id: 2040
  app_hash: "b18441a1ff607e10a989891a5462e627"
database:
  url: "postgres://u:p@localhost:5432/db"
`)
		cfg, err := LoadConfig(path, true)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if !cfg.Runtime.Dev {
			t.Error("expected dev mode to be set")
		}
		if cfg.Bot.Workers != 8 || cfg.Bot.Locale != "ru" {
			t.Errorf("unexpected bot defaults: %+v", cfg.Bot)
		}
		if cfg.Sessions.ServiceSenderID != 777000 || cfg.Sessions.CodeLimit != 5 {
			t.Errorf("unexpected sessions defaults: %+v", cfg.Sessions)
		}
		if len(cfg.Sessions.CodeMarkers) != 2 {
			t.Errorf("expected two default code markers, got %v", cfg.Sessions.CodeMarkers)
		}
		if cfg.Redis.URL != "" {
			t.Error("redis must stay optional")
		}
	})

	t.Run("should let the environment override the file", func(t *testing.T) {
		path := writeConfig(t, `
bot:
  token: "from-file"
database:
  url: "postgres://file"
`)
		t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
		t.Setenv("TG_API_ID", "777")
		t.Setenv("TG_API_HASH", "envhash")

		cfg, err := LoadConfig(path, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Bot.Token != "from-env" {
			t.Errorf("expected token from env, got %q", cfg.Bot.Token)
		}
		if cfg.TelegramAPI.AppID != 777 || cfg.TelegramAPI.AppHash != "envhash" {
			t.Errorf("unexpected telegram api config: %+v", cfg.TelegramAPI)
		}
	})

	t.Run("should reject a non numeric TG_API_ID", func(t *testing.T) {
		path := writeConfig(t, "bot:\n  token: x\n")
		t.Setenv("TG_API_ID", "abc")
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected an error for TG_API_ID=abc")
		}
	})

	t.Run("should fail without required values", func(t *testing.T) {
		path := writeConfig(t, "log:\n  level: debug\n")
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected a validation error")
		}
	})

	t.Run("should reject an unknown timezone", func(t *testing.T) {
		path := writeConfig(t, `
bot:
  token: "t"
telegram_api:
  app_id: 1
  app_hash: "h"
database:
  url: "postgres://x"
sessions:
  timezone: "Mars/Olympus"
`)
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected a timezone error")
		}
	})
}
