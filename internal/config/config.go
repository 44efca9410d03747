// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port    int `yaml:"port"`
	Workers int `yaml:"workers"` // webhook processing workers
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CreditsConfig struct {
	StartingGrant int    `yaml:"starting_grant"` // free credits on first contact
	CostPerImage  int    `yaml:"cost_per_image"`
	CheckoutURL   string `yaml:"checkout_url"` // sent in reply to "buy"
}

type ConversationConfig struct {
	PendingTTL time.Duration `yaml:"pending_ttl"` // instruction window for a received image
}

type TransformConfig struct {
	Provider        string        `yaml:"provider"` // fal | openai | gemini | noop
	Model           string        `yaml:"model"`
	FalKey          string        `yaml:"fal_key"`
	FalBaseURL      string        `yaml:"fal_base_url"`
	OpenAIKey       string        `yaml:"openai_key"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	Timeout         time.Duration `yaml:"timeout"`          // per-call bound
	MaxRetries      int           `yaml:"max_retries"`      // transient-class only
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent transform calls
}

type StorageConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region"`
	Bucket        string        `yaml:"bucket"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	UseSSL        bool          `yaml:"use_ssl"`
	PublicBaseURL string        `yaml:"public_base_url"` // optional CDN/virtual-host base
	Timeout       time.Duration `yaml:"timeout"`
}

type WhatsAppConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"` // "whatsapp:+1..." sender
	BaseURL    string `yaml:"base_url"`    // override for tests/sandboxes
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // HMAC secret for the credit API
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Credits      CreditsConfig      `yaml:"credits"`
	Conversation ConversationConfig `yaml:"conversation"`
	Transform    TransformConfig    `yaml:"transform"`
	Storage      StorageConfig      `yaml:"storage"`
	WhatsApp     WhatsAppConfig     `yaml:"whatsapp"`
	Admin        AdminConfig        `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Transform.Provider == "" {
		return nil, errors.New("transform.provider is required")
	}
	if cfg.Storage.Bucket == "" && cfg.Transform.Provider != "noop" {
		return nil, errors.New("storage.bucket is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Credits.StartingGrant <= 0 {
		cfg.Credits.StartingGrant = 3
	}
	if cfg.Credits.CostPerImage <= 0 {
		cfg.Credits.CostPerImage = 1
	}
	if cfg.Conversation.PendingTTL <= 0 {
		cfg.Conversation.PendingTTL = 15 * time.Minute
	}
	if cfg.Transform.Timeout <= 0 {
		cfg.Transform.Timeout = 60 * time.Second
	}
	if cfg.Transform.MaxRetries < 0 || cfg.Transform.MaxRetries > 2 {
		cfg.Transform.MaxRetries = 2
	}
	if cfg.Transform.ConcurrentLimit <= 0 {
		cfg.Transform.ConcurrentLimit = 16
	}
	if cfg.Transform.Model == "" && cfg.Transform.Provider == "fal" {
		cfg.Transform.Model = "fal-ai/flux-pro/kontext/max"
	}
	if cfg.Transform.FalBaseURL == "" {
		cfg.Transform.FalBaseURL = "https://queue.fal.run"
	}
	if cfg.Storage.Timeout <= 0 {
		cfg.Storage.Timeout = 30 * time.Second
	}
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = "s3.amazonaws.com"
	}
	if cfg.WhatsApp.BaseURL == "" {
		cfg.WhatsApp.BaseURL = "https://api.twilio.com"
	}
}
