// Package app bootstraps one worker's dependencies from config and bundles
// them into a Deps struct built once and passed explicitly to the
// dispatcher shell, replacing the teacher's process-wide "cloud config"
// singleton per spec §9's design note (SPEC_FULL §8).
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/compare"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/config"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/lifecycle"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/logger"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/notifysink/logsink"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/objectstore/localfs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/observability"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/retry"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store/chunked"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store/redisstore"
	kafkasource "github.com/mohammed-shakir/aoi-geofence-notifier/internal/worksource/kafka"

	"github.com/prometheus/client_golang/prometheus"
)

// App bundles every client a worker binary needs, constructed once at
// startup.
type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Store   store.Store
	Source  *kafkasource.Source
	Sink    *logsink.Sink
	Objects *localfs.Store

	Lifecycle *lifecycle.Lifecycle
	Compare   *compare.Engine

	redis *redisstore.Client
}

// objectStoreRoot is where localfs.Store reads work-item payload objects
// from, standing in for the production bulk-payload object store (spec §1
// places that out of scope).
const objectStoreRoot = "./testdata/objects"

// New wires a worker's Redis-backed Index Store, Kafka WorkSource, and the
// Lifecycle/Compare engines built on top of it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.Build(logger.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Component: "worker"}, nil)

	observability.Init(prometheus.DefaultRegisterer)

	redisClient, err := redisstore.New(ctx, cfg.RedisAddr,
		redisstore.WithReadTimeout(cfg.StoreReadTimeout),
		redisstore.WithDialTimeout(cfg.StoreConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("app.New: redis: %w", err)
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.StoreMaxRetries

	backend := redisstore.NewBackend(redisClient)
	idxStore := chunked.New(backend, chunked.Config{
		IndexBatchMax: cfg.IndexBatchMax,
		H3QueryMax:    cfg.H3QueryMax,
		Concurrency:   cfg.WorkerConcurrency,
		Retry:         retryCfg,
	})

	source, err := kafkasource.New(ctx, kafkaConfigFrom(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("app.New: kafka source: %w", err)
	}

	cmp, err := compare.New(idxStore, cfg.H3Resolution, 4096)
	if err != nil {
		return nil, fmt.Errorf("app.New: compare engine: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    log,
		Store:     idxStore,
		Source:    source,
		Sink:      logsink.New(log),
		Objects:   localfs.New(objectStoreRoot),
		Lifecycle: lifecycle.New(idxStore, cfg.H3Resolution).WithConcurrency(cfg.WorkerConcurrency),
		Compare:   cmp,
		redis:     redisClient,
	}, nil
}

// Close releases the worker's backing clients. Safe to call once at shutdown.
func (a *App) Close() error {
	sourceErr := a.Source.Close()
	redisErr := a.redis.Close()
	if sourceErr != nil {
		return sourceErr
	}
	return redisErr
}

// DispatchDeps adapts App's clients to dispatch.Deps.
func (a *App) DispatchDeps() dispatch.Deps {
	return dispatch.Deps{
		Source:  a.Source,
		Objects: a.Objects,
		Sink:    a.Sink,
		Logger:  a.Logger,
	}
}

func kafkaConfigFrom(cfg config.Config) kafkasource.Config {
	kc := kafkasource.DefaultConfig()
	kc.Brokers = strings.Split(cfg.KafkaBrokers, ",")
	kc.Topic = cfg.KafkaTopic
	kc.GroupID = cfg.KafkaGroupID
	return kc
}
