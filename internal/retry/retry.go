// Package retry runs retryable pipeline stages under an exponential backoff
// policy.
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/services"
)

// sleep is replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do invokes fn until it succeeds, the policy is exhausted, or it fails with
// a non-retryable error. Delays grow exponentially from the policy base,
// capped at the ceiling, with full jitter.
func Do(ctx context.Context, policy config.Retry, logger *slog.Logger, operation string, fn func(context.Context) error) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !services.Retryable(err) || attempt == attempts {
			return err
		}

		delay := backoff(policy, attempt)
		logger.Warn("retrying after failure",
			logging.String("operation", operation),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// backoff computes the jittered delay before the next attempt.
func backoff(policy config.Retry, attempt int) time.Duration {
	base := policy.BackoffBase
	if base < 1 {
		base = 1
	}
	ceiling := policy.BackoffCeiling
	if ceiling < base {
		ceiling = base
	}

	seconds := base
	for i := 1; i < attempt; i++ {
		seconds *= 2
		if seconds >= ceiling {
			seconds = ceiling
			break
		}
	}
	jittered := 1 + rand.IntN(seconds)
	return time.Duration(jittered) * time.Second
}
