// Command worker-delete runs the DELETE dispatcher loop: it consumes
// AOI-removal work items and removes every row for the named AOI from the
// Index Store (spec §4.4/§4.6).
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
		os.Stderr.WriteString("worker-delete: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("worker-delete: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer a.Close()

	go func() {
		if err := adminserver.Run(ctx, cfg.AdminAddr, logger.NewSlog(&a.Logger)); err != nil {
			a.Logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	a.Logger.Info().Msg("worker-delete starting")
	if err := a.RunWorker(ctx, handlers.DeleteHandler(a.Lifecycle), 2*time.Second); err != nil {
		a.Logger.Error().Err(err).Msg("worker-delete stopped with error")
		os.Exit(1)
	}
	a.Logger.Info().Msg("worker-delete stopped")
}
