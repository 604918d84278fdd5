package helpers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zinc-sig/asksnap/cmd/config"
	appconfig "github.com/zinc-sig/asksnap/internal/config"
	"github.com/zinc-sig/asksnap/internal/webhook"
)

// WebhookEnvPrefix names the environment variables read for webhook settings.
const WebhookEnvPrefix = "ASKSNAP_WEBHOOK"

// BuildWebhookConfig builds webhook configuration from all sources
// Precedence: env < file < json < kv < direct flags
func BuildWebhookConfig(cfg *config.WebhookConfig) (map[string]any, error) {
	webhookConf, err := appconfig.BuildWithPrefix(WebhookEnvPrefix, cfg.Config, cfg.ConfigKV, cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	if webhookConf == nil {
		webhookConf = make(map[string]any)
	}

	// Flags only win when moved off their defaults
	if cfg.URL != "" {
		webhookConf["url"] = cfg.URL
	}
	if cfg.Method != "" && cfg.Method != webhook.DefaultMethod {
		webhookConf["method"] = cfg.Method
	}
	if cfg.AuthType != "" && cfg.AuthType != webhook.AuthNone {
		webhookConf["auth_type"] = cfg.AuthType
	}
	if cfg.AuthToken != "" {
		webhookConf["auth_token"] = cfg.AuthToken
	}
	if cfg.Timeout != "" && cfg.Timeout != "30s" {
		webhookConf["timeout"] = cfg.Timeout
	}
	if cfg.Retries != 3 {
		webhookConf["retries"] = cfg.Retries
	}
	if cfg.RetryDelay != "" && cfg.RetryDelay != "1s" {
		webhookConf["retry_delay"] = cfg.RetryDelay
	}

	return webhookConf, nil
}

// Webhook is a parsed webhook target. A nil *Webhook sends nothing.
type Webhook struct {
	config *webhook.Config
	retry  *webhook.RetryConfig
}

// ParseWebhook resolves the webhook flags. It returns nil when no URL is
// configured anywhere.
func ParseWebhook(cfg *config.WebhookConfig) (*Webhook, error) {
	configMap, err := BuildWebhookConfig(cfg)
	if err != nil {
		return nil, err
	}
	wc, rc, err := webhook.FromMap(configMap)
	if err != nil {
		return nil, err
	}
	if wc == nil {
		return nil, nil
	}
	return &Webhook{config: wc, retry: rc}, nil
}

// URL returns the target URL.
func (w *Webhook) URL() string {
	if w == nil {
		return ""
	}
	return w.config.URL
}

// Send delivers payload. Errors are logged and returned for the caller to
// record; they are never fatal.
func (w *Webhook) Send(ctx context.Context, event string, payload any, logger *zap.Logger) error {
	if w == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := webhook.NewClient(w.config, w.retry, logger)
	if err := client.Send(ctx, event, payload); err != nil {
		logger.Error("webhook delivery failed", zap.String("url", w.config.URL), zap.Error(err))
		return err
	}
	return nil
}
