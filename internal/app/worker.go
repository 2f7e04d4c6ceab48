package app

import (
	"context"
	"strconv"
	"time"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch"
)

// RunWorker drives the dispatcher loop with handler until ctx is cancelled,
// pausing pollInterval after every RunOnce call so an idle worker doesn't
// busy-loop on the WorkSource.
func (a *App) RunWorker(ctx context.Context, handler dispatch.Handler, pollInterval time.Duration) error {
	shell := dispatch.NewShell(a.DispatchDeps(), messageIDGenerator())
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := shell.RunOnce(ctx, handler); err != nil {
			a.Logger.Error().Err(err).Msg("dispatch run failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

func messageIDGenerator() func() string {
	n := 0
	return func() string {
		n++
		return time.Now().UTC().Format("20060102T150405.000000000") + "-" + strconv.Itoa(n)
	}
}
