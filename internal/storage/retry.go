// ABOUTME: Bounded, classified retry for every call the remote client makes.
// ABOUTME: Transient failures back off linearly; permanent ones return at once.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 750 * time.Millisecond
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier retries transient failures up to MaxRetries extra attempts, waiting
// attempt*BaseDelay before each retry. Writes are retried like reads and are
// not deduplicated, so a create whose response was lost can be submitted twice.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	Sleep      SleepFunc
	Logger     *slog.Logger
}

// NewRetrier returns the default policy: 3 retries at 750ms, 1500ms, 2250ms.
func NewRetrier() *Retrier {
	return &Retrier{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		Sleep:      sleepContext,
		Logger:     slog.Default(),
	}
}

// Do runs fn until it succeeds, fails permanently, or retries run out.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * r.BaseDelay
			logger.Debug("retrying remote call", "op", op, "attempt", attempt, "delay", delay, "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: %w", op, lastErr)
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return err
		}
		lastErr = err
	}

	logger.Warn("remote call failed after retries", "op", op, "retries", r.MaxRetries, "error", lastErr)
	return fmt.Errorf("%s failed after %d retries: %w", op, r.MaxRetries, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
