// internal/services/gateway/retry.go
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	commonhttp "jelita/internal/common/http"
	"jelita/internal/common/logger"
)

// retryable reports whether another attempt may succeed: transport failures
// and 5xx answers are retried, 4xx answers are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// retryWithBackoff runs operation up to 1+maxRetries times, doubling the delay
// between attempts. It returns the number of attempts made.
func retryWithBackoff(ctx context.Context, operation func(ctx context.Context) error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) (int, error) {
	delay := initialDelay
	attempts := maxRetries + 1

	var err error
	for i := 0; i < attempts; i++ {
		err = operation(ctx)
		if err == nil {
			return i + 1, nil
		}
		if !retryable(err) || i == attempts-1 {
			return i + 1, err
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return i + 1, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return attempts, err
}
