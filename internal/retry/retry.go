// Package retry wraps Index Store calls in exponential backoff with jitter,
// per the spec's "retried with exponential backoff + jitter, max 8 attempts
// (adaptive)" failure semantics for transient store errors.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
)

type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:     8,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Do retries fn while it returns an *errs.Error of Kind StoreTransient, up to
// cfg.MaxAttempts attempts. Any other error (including nil) stops the retry
// loop immediately. Exhausting all attempts returns a StoreUnavailable error
// wrapping the last transient error seen.
func Do(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0 // bounded by MaxAttempts, not wall clock

	bctx := backoff.WithContext(b, ctx)

	attempts := 0
	var lastErr error
	operation := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errs.IsKind(err, errs.StoreTransient) {
			return backoff.Permanent(err)
		}
		if attempts >= cfg.MaxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(bctx, uint64(cfg.MaxAttempts)))
	if err == nil {
		return nil
	}
	if errs.IsKind(lastErr, errs.StoreTransient) {
		return errs.New(errs.StoreUnavailable, op, lastErr)
	}
	return err
}
