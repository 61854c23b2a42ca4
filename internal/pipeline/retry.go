package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docanchor/internal/pathstore"
)

const MaxRetries = 3

// IsRetryable reports whether err is a transient pathstore failure.
func IsRetryable(err error) bool {
	var retryErr *pathstore.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before attempt n (0-indexed), with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// retry runs op up to MaxRetries times while it fails with a retryable
// error, sleeping with backoff between attempts.
func retry(ctx context.Context, log *slog.Logger, what string, backoff func(int) time.Duration, op func() error) error {
	var err error
	for attempt := range MaxRetries {
		err = op()
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			return err
		}
		log.Warn("retryable pathstore error", "op", what, "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
