package gemini

import (
	"context"
	"time"

	"github.com/yungbote/skooly-backend/internal/platform/httpx"
)

// withRetry runs fn up to MaxAttempts times while failures look transient.
func withRetry[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		out, err = fn(ctx)
		if err == nil || !httpx.IsRetryableError(err) || attempt == c.cfg.MaxAttempts {
			return out, err
		}
		backoff := httpx.JitterSleep(time.Duration(attempt) * 500 * time.Millisecond)
		c.log.Warn("gemini call failed; retrying", "op", op, "attempt", attempt, "backoff", backoff, "error", err)
		if sleepErr := httpx.Sleep(ctx, backoff); sleepErr != nil {
			return out, err
		}
	}
	return out, err
}
