// Package adminserver is the worker's admin HTTP surface: /healthz and
// /metrics, run alongside the dispatcher loop in every cmd/worker-* binary
// (SPEC_FULL §12). Grounded on the teacher's internal/core/server.Run
// (chi + Recover/Logging/CORS + promhttp, graceful shutdown on context
// cancellation), trimmed of the GeoServer-forwarding /query route that
// server belonged to.
package adminserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/health"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/httpmw"
)

// Run serves /healthz and /metrics on addr until ctx is cancelled, then
// shuts down gracefully with a 10s grace period.
func Run(ctx context.Context, addr string, logger *slog.Logger) error {
	r := chi.NewRouter()
	r.Use(httpmw.Recover())
	r.Use(httpmw.Logging(logger))
	r.Use(httpmw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
