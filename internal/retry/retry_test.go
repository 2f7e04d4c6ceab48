package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
)

func fastConfig() Config {
	return Config{MaxAttempts: 4, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestDo_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), "store.put", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.StoreTransient, "store.put", errors.New("timeout"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientStopsImmediately(t *testing.T) {
	calls := 0
	want := errs.New(errs.InvalidGeometry, "store.put", errors.New("bad payload"))
	err := Do(context.Background(), fastConfig(), "store.put", func(ctx context.Context) error {
		calls++
		return want
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-transient error, got %d", calls)
	}
	if err != want {
		t.Fatalf("expected the original error to be returned unwrapped, got %v", err)
	}
}

func TestDo_ExhaustionBecomesStoreUnavailable(t *testing.T) {
	cfg := fastConfig()
	calls := 0
	err := Do(context.Background(), cfg, "store.put", func(ctx context.Context) error {
		calls++
		return errs.New(errs.StoreTransient, "store.put", errors.New("still down"))
	})
	if calls != cfg.MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxAttempts, calls)
	}
	if !errs.IsKind(err, errs.StoreUnavailable) {
		t.Fatalf("expected StoreUnavailable after exhausting retries, got %v", err)
	}
}
