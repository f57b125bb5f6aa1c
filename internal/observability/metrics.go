// Package observability owns the Prometheus collectors of the service.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "daylog"

var (
	validationRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "validation_rejections_total",
		Help:      "Candidate activities rejected by validation, by reason.",
	}, []string{"reason"})

	writes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Activity writes attempted through the tracker, by operation and result.",
	}, []string{"op", "result"})

	activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "active_subscriptions",
		Help:      "Live activity feeds currently held open.",
	})

	prunedActivities = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "pruned_activities_total",
		Help:      "Activities deleted by the retention pruner.",
	})

	lastPruneGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful pruning run.",
	})

	catalogReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "reloads_total",
		Help:      "Category file reloads, by result.",
	}, []string{"result"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern, method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

func init() {
	prometheus.MustRegister(
		validationRejections,
		writes,
		activeSubscriptions,
		prunedActivities,
		lastPruneGauge,
		catalogReloads,
		httpDuration,
	)
}

// Write results.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// RecordRejection counts a validation failure.
func RecordRejection(reason string) {
	validationRejections.WithLabelValues(reason).Inc()
}

// RecordWrite counts an add, update or remove attempt.
func RecordWrite(op, result string) {
	writes.WithLabelValues(op, result).Inc()
}

// SubscriptionOpened and SubscriptionClosed track live feeds.
func SubscriptionOpened() { activeSubscriptions.Inc() }
func SubscriptionClosed() { activeSubscriptions.Dec() }

// RecordPrune counts deleted activities and stamps the run.
func RecordPrune(deleted int, at time.Time) {
	prunedActivities.Add(float64(deleted))
	lastPruneGauge.Set(float64(at.Unix()))
}

// RecordCatalogReload counts a reload attempt.
func RecordCatalogReload(err error) {
	if err != nil {
		catalogReloads.WithLabelValues(ResultError).Inc()
		return
	}
	catalogReloads.WithLabelValues(ResultOK).Inc()
}

// ObserveHTTP records one request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
