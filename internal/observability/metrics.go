// Package observability exposes the Prometheus collectors this service's
// workers register, in the same init/registerer shape the cache service this
// codebase started from used (internal/core/observability there).
package observability

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

var (
	storeOpTotal           *prometheus.CounterVec
	storeOpDurationSeconds  *prometheus.HistogramVec
	recordsTotal            *prometheus.CounterVec
	notificationsTotal      *prometheus.CounterVec
	compareTilesTotal       prometheus.Counter
	compareAffectedAOIs     prometheus.Counter
	kafkaConsumerLagSeconds prometheus.Gauge
)

// Init registers every collector with r. Safe to call once per process.
func Init(r prometheus.Registerer) {
	if r == nil {
		return
	}
	enabled.Store(true)

	storeOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_op_total", Help: "Index Store calls by operation and outcome."},
		[]string{"op", "outcome"},
	)
	storeOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "store_op_duration_seconds", Help: "Index Store call latency.", Buckets: prometheus.ExponentialBuckets(0.001, 2, 14)},
		[]string{"op"},
	)
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "aoi_records_total", Help: "Per-record outcomes by operation and status."},
		[]string{"op", "status"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_total", Help: "Notifications published by status."},
		[]string{"status"},
	)
	compareTilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "compare_tiles_total", Help: "Tiles processed by the compare engine."},
	)
	compareAffectedAOIs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "compare_affected_aois_total", Help: "AOI/tile-batch matches found by the compare engine."},
	)
	kafkaConsumerLagSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "kafka_consumer_lag_seconds", Help: "Age of the most recently consumed work item."},
	)

	r.MustRegister(
		storeOpTotal,
		storeOpDurationSeconds,
		recordsTotal,
		notificationsTotal,
		compareTilesTotal,
		compareAffectedAOIs,
		kafkaConsumerLagSeconds,
	)
}

func Enabled() bool { return enabled.Load() }

func ObserveStoreOp(op string, err error, seconds float64) {
	if !Enabled() {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOpTotal.WithLabelValues(op, outcome).Inc()
	storeOpDurationSeconds.WithLabelValues(op).Observe(seconds)
}

func ObserveRecord(op, status string) {
	if !Enabled() {
		return
	}
	recordsTotal.WithLabelValues(op, status).Inc()
}

func ObserveNotification(status string) {
	if !Enabled() {
		return
	}
	notificationsTotal.WithLabelValues(status).Inc()
}

func AddCompareTiles(n int) {
	if !Enabled() || n <= 0 {
		return
	}
	compareTilesTotal.Add(float64(n))
}

func AddCompareAffectedAOIs(n int) {
	if !Enabled() || n <= 0 {
		return
	}
	compareAffectedAOIs.Add(float64(n))
}

func SetKafkaConsumerLag(ts time.Time) {
	if !Enabled() || ts.IsZero() {
		return
	}
	kafkaConsumerLagSeconds.Set(time.Since(ts).Seconds())
}
