package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"syscall"
	"time"
)

// RetryPolicy bounds retries of transient store errors.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// retryWithBackoff runs fn until it succeeds, fails with a non-transient
// error, or maxRetries retries are used. Delay is initialDelay * 2^attempt ±25%.
func retryWithBackoff(ctx context.Context, p RetryPolicy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) || attempt == p.MaxRetries {
			break
		}

		delay := time.Duration(float64(p.InitialDelay) * math.Pow(2, float64(attempt)))
		if half := int64(delay) / 2; half > 0 {
			delay = delay - delay/4 + time.Duration(rand.Int64N(half))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// isTransient reports whether err looks like a dropped or refused connection.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
