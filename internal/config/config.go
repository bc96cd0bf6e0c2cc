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
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type AccountConfig struct {
	URLFragment     string `yaml:"url_fragment"`
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	TelegramChannel string `yaml:"telegram_channel"`
	Currency        string `yaml:"currency"`
}

type CRMConfig struct {
	Accounts       []AccountConfig `yaml:"accounts"`
	DefaultAccount string          `yaml:"default_account"` // url_fragment of fallback account
	DefaultSites   []string        `yaml:"default_sites"`
}

type PollingConfig struct {
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"` // CRM page size: 20|50|100
}

type AdminConfig struct {
	Key        string        `yaml:"key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Mode     string         `yaml:"mode"` // webhook | polling
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
	CRM      CRMConfig      `yaml:"crm"`
	Polling  PollingConfig  `yaml:"polling"`
	Admin    AdminConfig    `yaml:"admin"`

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
	// defaults
	if cfg.Mode == "" {
		cfg.Mode = "webhook"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Polling.Interval <= 0 {
		cfg.Polling.Interval = 30 * time.Second
	}
	cfg.Polling.Limit = normalizeLimit(cfg.Polling.Limit)
	if len(cfg.CRM.DefaultSites) == 0 {
		cfg.CRM.DefaultSites = []string{"main", "default", "site"}
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Mode != "webhook" && cfg.Mode != "polling" {
		return nil, fmt.Errorf("mode must be webhook or polling, got %q", cfg.Mode)
	}
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram.token is required")
	}
	if len(cfg.CRM.Accounts) == 0 {
		return nil, errors.New("crm.accounts must not be empty")
	}
	for i, a := range cfg.CRM.Accounts {
		if a.BaseURL == "" || a.APIKey == "" {
			return nil, fmt.Errorf("crm.accounts[%d]: base_url and api_key are required", i)
		}
	}
	if cfg.CRM.DefaultAccount != "" && !hasFragment(cfg.CRM.Accounts, cfg.CRM.DefaultAccount) {
		return nil, fmt.Errorf("crm.default_account %q does not name a configured account", cfg.CRM.DefaultAccount)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// The CRM list endpoint only accepts these page sizes.
func normalizeLimit(n int) int {
	switch n {
	case 20, 50, 100:
		return n
	default:
		return 100
	}
}

func hasFragment(accounts []AccountConfig, fragment string) bool {
	for _, a := range accounts {
		if a.URLFragment == fragment {
			return true
		}
	}
	return false
}
