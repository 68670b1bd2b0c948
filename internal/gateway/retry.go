package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures the exponential backoff used around every
// Anthropic call, replacing the teacher's hand-rolled backoff loop in
// haiku.go with the library (cenkalti/backoff/v4) it already imports.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	return backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
}

// isRetryable classifies an Anthropic API error exactly as the teacher's
// isRetryable does: timeouts and 429/5xx are retryable, everything else
// (including context cancellation) is terminal.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

// callWithBackoff runs fn under the retry policy, giving up immediately
// on non-retryable errors rather than burning the retry budget on them.
func callWithBackoff(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !isRetryable(err) {
			return backoff.Permanent(fmt.Errorf("non-retryable error: %w", err))
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(policy.newBackOff(), ctx))
}
