package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports transport timeouts and retryable upstream
// statuses. Callers check their own ctx first; a cancelled parent is never
// worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// JitterSleep spreads base by +/-20%.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// Policy bounds a retry loop. Initial doubles after every attempt up to Max.
type Policy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

// RetryFunc is told about each failed attempt before the loop sleeps.
type RetryFunc func(attempt int, sleep time.Duration, err error)

// Retry calls fn until it succeeds, returns a non-retryable error, or
// MaxRetries is spent. The last error is returned as is.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error, onRetry RetryFunc) error {
	backoff := p.Initial
	if backoff <= 0 {
		backoff = time.Second
	}
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetryableError(err) || attempt >= p.MaxRetries {
			return err
		}
		sleepFor := JitterSleep(backoff)
		if onRetry != nil {
			onRetry(attempt+1, sleepFor, err)
		}
		t := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if p.Max <= 0 || backoff < p.Max {
			backoff *= 2
		}
		if p.Max > 0 && backoff > p.Max {
			backoff = p.Max
		}
	}
}
