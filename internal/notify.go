package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers a message or reports why it could not.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// DefaultTelegramAPI is the Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts messages through the Telegram Bot API.
type TelegramNotifier struct {
	BotToken     string
	ChatID       string
	DashboardURL string

	// APIBase defaults to DefaultTelegramAPI
	APIBase string
	Client  *http.Client
}

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	if n.DashboardURL != "" {
		message += "\n\nDetails: " + n.DashboardURL
	}

	body, err := json.Marshal(telegramMessage{ChatID: n.ChatID, Text: message})
	if err != nil {
		return fmt.Errorf("encoding telegram message: %w", err)
	}

	base := n.APIBase
	if base == "" {
		base = DefaultTelegramAPI
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, n.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building telegram request: %v", ErrIO, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client().Do(req)
	if err != nil {
		// the URL embeds the bot token, so don't echo the transport error verbatim
		return fmt.Errorf("%w: sending telegram message failed", ErrIO)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: telegram returned %s: %s", ErrIO, resp.Status, bytes.TrimSpace(detail))
	}
	return nil
}

func (n *TelegramNotifier) client() *http.Client {
	if n.Client != nil {
		return n.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// NewNotifier builds the notifier described by cfg, or nil when
// notifications are disabled.
func NewNotifier(cfg *Config) Notifier {
	if !cfg.NotificationsEnabled() {
		return nil
	}
	return &TelegramNotifier{
		BotToken:     cfg.Telegram.BotToken,
		ChatID:       cfg.Telegram.ChatID,
		DashboardURL: cfg.DashboardURL,
	}
}

// NotifyBestEffort sends message if a notifier is configured. Failures are
// logged and never returned.
func NotifyBestEffort(ctx context.Context, n Notifier, logger *zap.Logger, message string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, message); err != nil {
		loggerOrNop(logger).Warn("notification failed", zap.Error(err))
	}
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
