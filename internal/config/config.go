// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token   string `yaml:"token"`
	Mode    string `yaml:"mode"`    // polling | webhook (future)
	Workers int    `yaml:"workers"` // per-chat serialized update workers
	Locale  string `yaml:"locale"`  // ru | en
}

// TelegramAPIConfig holds the MTProto application credentials used for every onboarded account.
type TelegramAPIConfig struct {
	AppID   int    `yaml:"app_id"`
	AppHash string `yaml:"app_hash"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional; rate limiting is disabled when URL is empty.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	MessagesPerMinute  int `yaml:"messages_per_minute"`
	CallbacksPerMinute int `yaml:"callbacks_per_minute"`
}

type SessionsConfig struct {
	ExportDir       string   `yaml:"export_dir"`
	ServiceSenderID int64    `yaml:"service_sender_id"`
	CodeLimit       int      `yaml:"code_limit"`
	CodeMarkers     []string `yaml:"code_markers"`
	Timezone        string   `yaml:"timezone"`
}

type Config struct {
	Bot         BotConfig         `yaml:"bot"`
	TelegramAPI TelegramAPIConfig `yaml:"telegram_api"`
	Log         LogConfig         `yaml:"log"`
	Admin       AdminConfig       `yaml:"admin"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Sessions    SessionsConfig    `yaml:"sessions"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional when every required value comes from
// the environment), loads a .env file if present and applies environment overrides.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("TG_API_HASH"); v != "" {
		cfg.TelegramAPI.AppHash = v
	}
	if v := os.Getenv("TG_API_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TG_API_ID: %w", err)
		}
		cfg.TelegramAPI.AppID = id
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Locale == "" {
		cfg.Bot.Locale = "ru"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.RateLimit.MessagesPerMinute <= 0 {
		cfg.RateLimit.MessagesPerMinute = 20
	}
	if cfg.RateLimit.CallbacksPerMinute <= 0 {
		cfg.RateLimit.CallbacksPerMinute = 30
	}
	if cfg.Sessions.ExportDir == "" {
		cfg.Sessions.ExportDir = os.TempDir()
	}
	if cfg.Sessions.ServiceSenderID == 0 {
		cfg.Sessions.ServiceSenderID = 777000
	}
	if cfg.Sessions.CodeLimit <= 0 {
		cfg.Sessions.CodeLimit = 5
	}
	if len(cfg.Sessions.CodeMarkers) == 0 {
		cfg.Sessions.CodeMarkers = []string{"Код для входа", "Login code"}
	}
	if cfg.Sessions.Timezone == "" {
		cfg.Sessions.Timezone = "Local"
	}
}

// Validate checks required values.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.TelegramAPI.AppID <= 0 || strings.TrimSpace(c.TelegramAPI.AppHash) == "" {
		return errors.New("telegram_api.app_id and telegram_api.app_hash are required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("sessions.timezone: %w", err)
	}
	return nil
}

// Location resolves sessions.timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Sessions.Timezone)
}
