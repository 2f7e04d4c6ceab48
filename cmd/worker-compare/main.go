// Command worker-compare runs the COMPARE dispatcher loop: it consumes
// tile-batch work items, runs the H3-prefilter-then-exact-intersects engine
// against the Index Store, and publishes one notification per affected AOI
// (spec §4.5/§4.6).
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/adminserver"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/app"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/config"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch/handlers"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/logger"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("worker-compare: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("worker-compare: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer a.Close()

	go func() {
		if err := adminserver.Run(ctx, cfg.AdminAddr, logger.NewSlog(&a.Logger)); err != nil {
			a.Logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	nextMessageID := messageIDSeq()
	a.Logger.Info().Msg("worker-compare starting")
	if err := a.RunWorker(ctx, handlers.CompareHandler(a.Compare, nextMessageID), 2*time.Second); err != nil {
		a.Logger.Error().Err(err).Msg("worker-compare stopped with error")
		os.Exit(1)
	}
	a.Logger.Info().Msg("worker-compare stopped")
}

func messageIDSeq() func() string {
	n := 0
	return func() string {
		n++
		return "compare-" + time.Now().UTC().Format("20060102T150405.000000000") + "-" + strconv.Itoa(n)
	}
}
