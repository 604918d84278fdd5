package webhook

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMethod  = "POST"
	DefaultTimeout = 30 * time.Second

	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "api-key"
)

// Config holds webhook endpoint configuration
type Config struct {
	URL       string
	Method    string
	Headers   map[string]string
	Timeout   time.Duration // covers every attempt
	AuthType  string        // none, bearer, api-key
	AuthToken string
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// FromMap reads a merged config map (keys url, method, headers, timeout,
// auth_type, auth_token, retries, retry_delay). A map without url means no
// webhook and returns nil configs.
func FromMap(m map[string]any) (*Config, *RetryConfig, error) {
	url, _ := m["url"].(string)
	if url == "" {
		return nil, nil, nil
	}

	cfg := &Config{
		URL:      url,
		Method:   DefaultMethod,
		Timeout:  DefaultTimeout,
		AuthType: AuthNone,
	}
	retry := DefaultRetryConfig()

	if method, ok := m["method"].(string); ok && method != "" {
		cfg.Method = strings.ToUpper(method)
	}
	if authType, ok := m["auth_type"].(string); ok && authType != "" {
		switch authType {
		case AuthNone, AuthBearer, AuthAPIKey:
			cfg.AuthType = authType
		default:
			return nil, nil, fmt.Errorf("unsupported webhook auth type %q", authType)
		}
	}
	cfg.AuthToken, _ = m["auth_token"].(string)

	if headers, ok := m["headers"].(map[string]any); ok {
		cfg.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			cfg.Headers[k] = fmt.Sprint(v)
		}
	}

	var err error
	if cfg.Timeout, err = durationValue(m, "timeout", DefaultTimeout); err != nil {
		return nil, nil, fmt.Errorf("invalid webhook timeout duration: %w", err)
	}
	if retry.InitialDelay, err = durationValue(m, "retry_delay", retry.InitialDelay); err != nil {
		return nil, nil, fmt.Errorf("invalid webhook retry delay: %w", err)
	}
	if retry.MaxRetries, err = intValue(m, "retries", retry.MaxRetries); err != nil {
		return nil, nil, fmt.Errorf("invalid webhook retries: %w", err)
	}
	if retry.MaxRetries < 0 {
		return nil, nil, fmt.Errorf("invalid webhook retries: %d", retry.MaxRetries)
	}

	return cfg, retry, nil
}

func durationValue(m map[string]any, key string, def time.Duration) (time.Duration, error) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func intValue(m map[string]any, key string, def int) (int, error) {
	switch v := m[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
