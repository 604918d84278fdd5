package webhook

import (
	"math"
	"math/rand"
	"net/http"
	"time"
)

// calculateBackoff returns InitialDelay * Multiplier^(attempt-1), capped at
// MaxDelay, with ±10% jitter. Attempt 0 has no delay.
func calculateBackoff(attempt int, config *RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	multiplier := config.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	jitter := delay * 0.1
	return time.Duration(delay + (rand.Float64()*2-1)*jitter)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
