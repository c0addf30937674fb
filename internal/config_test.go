package internal

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `document: /srv/www/index.html
base_currency: USD
alert_threshold_days: 5
dashboard_url: https://vps.example.com
rate_sources:
  - https://rates.example.com/%s
telegram:
  enabled: true
  bot_token: "123:abc"
  chat_id: "-100"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := &Config{
		Document:           "/srv/www/index.html",
		RatesFile:          "exchange_rates.js",
		BaseCurrency:       "USD",
		AlertThresholdDays: 5,
		DashboardURL:       "https://vps.example.com",
		RateSources:        []string{"https://rates.example.com/%s"},
		Telegram:           TelegramConfig{Enabled: true, BotToken: "123:abc", ChatID: "-100"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
	if !cfg.NotificationsEnabled() {
		t.Error("NotificationsEnabled = false, want true")
	}
	if got := cfg.GetAlertThreshold(); got != 5 {
		t.Errorf("GetAlertThreshold = %d, want 5", got)
	}
}

func TestLoadConfig_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
		t.Errorf("empty file should give defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unsupported base currency", "base_currency: XYZ\n"},
		{"negative threshold", "alert_threshold_days: -1\n"},
		{"not yaml", "document: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadOrCreateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadOrCreateConfig(path)
	if err != nil {
		t.Fatalf("LoadOrCreateConfig: %v", err)
	}
	if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config was not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if diff := cmp.Diff(cfg, again); diff != "" {
		t.Errorf("saved config does not round trip (-want +got):\n%s", diff)
	}
}

func TestConfig_NilGetters(t *testing.T) {
	var cfg *Config
	if cfg.NotificationsEnabled() {
		t.Error("nil config should not enable notifications")
	}
	if diff := cmp.Diff(DefaultRateSources, cfg.GetRateSources()); diff != "" {
		t.Errorf("nil config rate sources mismatch:\n%s", diff)
	}
	if got := cfg.GetAlertThreshold(); got != DefaultAlertThreshold {
		t.Errorf("GetAlertThreshold = %d, want %d", got, DefaultAlertThreshold)
	}
}
