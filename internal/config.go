package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRateSources are tried in order; %s is replaced by the base currency.
var DefaultRateSources = []string{
	"https://api.exchangerate-api.com/v4/latest/%s",
	"https://open.er-api.com/v6/latest/%s",
}

// TelegramConfig holds the notification channel settings.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
}

type Config struct {
	// Document is the host page holding the record array
	Document string `yaml:"document,omitempty"`

	// RatesFile is the generated exchange rate script read by the page
	RatesFile string `yaml:"rates_file,omitempty"`

	// BaseCurrency is the currency rates are quoted against and totals are shown in
	BaseCurrency string `yaml:"base_currency,omitempty"`

	// AlertThresholdDays is how many days ahead a renewal triggers an alert
	AlertThresholdDays int `yaml:"alert_threshold_days,omitempty"`

	// DashboardURL is appended to notifications as a link to the page
	DashboardURL string `yaml:"dashboard_url,omitempty"`

	// RateSources overrides DefaultRateSources
	RateSources []string `yaml:"rate_sources,omitempty"`

	Telegram TelegramConfig `yaml:"telegram"`
}

// DefaultConfigPath returns the default config file path (~/.vps-tracker/config.yaml)
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vps-tracker", "config.yaml")
}

// NewDefaultConfig returns the settings used when no config file exists.
func NewDefaultConfig() *Config {
	return &Config{
		Document:           "index.html",
		RatesFile:          "exchange_rates.js",
		BaseCurrency:       "CNY",
		AlertThresholdDays: DefaultAlertThreshold,
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if _, err := ParseCurrency(cfg.BaseCurrency); err != nil {
		return nil, fmt.Errorf("invalid base_currency: %w", err)
	}
	if cfg.AlertThresholdDays < 0 {
		return nil, fmt.Errorf("invalid alert_threshold_days %d: must not be negative", cfg.AlertThresholdDays)
	}
	return cfg, nil
}

// LoadOrCreateConfig loads path, writing the defaults there first if the
// file does not exist yet.
func LoadOrCreateConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg = NewDefaultConfig()
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// credentials live here, keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// NotificationsEnabled reports whether a notifier should be built.
func (c *Config) NotificationsEnabled() bool {
	return c != nil && c.Telegram.Enabled
}

// GetRateSources returns the configured sources, or the defaults.
func (c *Config) GetRateSources() []string {
	if c == nil || len(c.RateSources) == 0 {
		return DefaultRateSources
	}
	return c.RateSources
}

// GetAlertThreshold returns the alert window in days.
func (c *Config) GetAlertThreshold() int {
	if c == nil || c.AlertThresholdDays == 0 {
		return DefaultAlertThreshold
	}
	return c.AlertThresholdDays
}
