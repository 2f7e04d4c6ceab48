// Command worker-add runs the ADD dispatcher loop: it consumes AOI-upsert
// work items, covers each polygon at the configured H3 resolution, and
// replaces the affected AOI's rows in the Index Store (spec §4.4/§4.6).
package main

import (
	"context"
	"os"
	"os/signal"
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
		os.Stderr.WriteString("worker-add: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("worker-add: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer a.Close()

	go func() {
		if err := adminserver.Run(ctx, cfg.AdminAddr, logger.NewSlog(&a.Logger)); err != nil {
			a.Logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	a.Logger.Info().Msg("worker-add starting")
	if err := a.RunWorker(ctx, handlers.AddHandler(a.Lifecycle), 2*time.Second); err != nil {
		a.Logger.Error().Err(err).Msg("worker-add stopped with error")
		os.Exit(1)
	}
	a.Logger.Info().Msg("worker-add stopped")
}
