package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"event-hosting/internal/docstore"
)

var (
	collectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docstore_documents_total",
			Help: "Current number of documents per collection",
		},
		[]string{"collection"},
	)

	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total signup and signin attempts",
		},
		[]string{"action", "result"},
	)

	eventOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_operations_total",
			Help: "Total event operations",
		},
		[]string{"operation", "status"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)

	storeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Duration of document store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation", "status"},
	)
)

// Collections whose sizes the monitor reports.
var monitoredCollections = []string{"events", "users", "reservations"}

type Monitor struct {
	store    docstore.Store
	interval time.Duration
}

func NewMonitor(store docstore.Store, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{store: store, interval: interval}
}

// Start collects gauges until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Collect(ctx)
			}
		}
	}()
}

func (m *Monitor) Collect(ctx context.Context) {
	m.collectCollectionMetrics(ctx)
	m.collectGoroutineMetrics()
}

func (m *Monitor) collectCollectionMetrics(ctx context.Context) {
	for _, collection := range monitoredCollections {
		docs, err := m.store.ReadAll(ctx, collection)
		if err != nil {
			slog.Warn("Failed to collect collection size", "collection", collection, "error", err)
			continue
		}
		collectionSize.WithLabelValues(collection).Set(float64(len(docs)))
	}
}

func (m *Monitor) collectGoroutineMetrics() {
	goroutineCount.Set(float64(runtime.NumGoroutine()))
}

// TrackAuthAttempt counts a signup or signin outcome.
func TrackAuthAttempt(action, result string) {
	authAttempts.WithLabelValues(action, result).Inc()
}

// TrackEventOperation counts an event operation outcome.
func TrackEventOperation(operation, status string) {
	eventOperations.WithLabelValues(operation, status).Inc()
}

func observeStore(operation string, started time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, docstore.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	storeLatency.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
