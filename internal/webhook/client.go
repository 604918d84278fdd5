package webhook

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

// EventHeader names the event a delivery reports.
const EventHeader = "X-Asksnap-Event"

const requestTimeout = 10 * time.Second

// Client delivers JSON payloads to one endpoint with retries.
type Client struct {
	httpClient  *http.Client
	config      *Config
	retryConfig *RetryConfig
	logger      *zap.Logger
}

func NewClient(config *Config, retryConfig *RetryConfig, logger *zap.Logger) *Client {
	if config.Method == "" {
		config.Method = DefaultMethod
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		config:      config,
		retryConfig: retryConfig,
		logger:      logger.With(zap.String("url", config.URL)),
	}
}

// Send posts payload as event. Retryable statuses and transport errors are
// retried with backoff until MaxRetries or the overall timeout.
func (c *Client) Send(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, c.retryConfig)
			c.logger.Debug("retrying webhook",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.retryConfig.MaxRetries),
				zap.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("webhook timeout after %d attempts: %w", attempt, ctx.Err())
			}
		}

		statusCode, err := c.deliver(ctx, event, body)
		if err == nil && statusCode >= 200 && statusCode < 300 {
			c.logger.Info("webhook delivered", zap.String("event", event), zap.Int("status", statusCode))
			return nil
		}

		if err != nil {
			lastErr = fmt.Errorf("attempt %d failed: %w", attempt+1, err)
		} else {
			lastErr = fmt.Errorf("attempt %d failed with status %d", attempt+1, statusCode)
		}

		if statusCode > 0 && !isRetryableStatus(statusCode) {
			c.logger.Debug("non-retryable webhook status", zap.Int("status", statusCode))
			return lastErr
		}
		if ctx.Err() != nil {
			return fmt.Errorf("webhook timeout after %d attempts: %w", attempt+1, lastErr)
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", c.retryConfig.MaxRetries+1, lastErr)
}

func (c *Client) deliver(ctx context.Context, event string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	if event != "" {
		req.Header.Set(EventHeader, event)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	switch c.config.AuthType {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	case AuthAPIKey:
		req.Header.Set("X-API-Key", c.config.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
