// Package metrics implements the Prometheus instrumentation component
// (§4.M), grounded on the teacher's pkg/metrics/prometheus package: a
// struct of promauto-registered collectors behind a single constructor,
// with every recording method nil-receiver-safe so a caller that never
// enables metrics pays no cost beyond a nil check.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector named in §4.M: snapshot acquisitions and
// hold duration, lock wait duration, control-socket command duration and
// failures by command, HTTP request duration by route, history pages
// served, and filter pipeline predicate pass-through counts.
type Metrics struct {
	registry *prometheus.Registry

	snapshotAcquisitions prometheus.Counter
	snapshotHoldSeconds  prometheus.Histogram
	lockWaitSeconds      prometheus.Histogram

	socketCommandSeconds  *prometheus.HistogramVec
	socketCommandFailures *prometheus.CounterVec

	httpRequestSeconds *prometheus.HistogramVec

	historyPagesServed prometheus.Counter

	filterPredicatePassThrough *prometheus.CounterVec
}

// New builds a Metrics instance registered against a fresh registry, or
// returns nil when enabled is false. Callers pass the nil result straight
// through to collaborators (Facade, Dialer, the API router) — every method
// on *Metrics tolerates a nil receiver, so a disabled deployment incurs a
// single nil check per call site instead of conditional branches scattered
// through the call graph.
func New(enabled bool) *Metrics {
	if !enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,

		snapshotAcquisitions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "pihole_api",
			Subsystem: "snapshot",
			Name:      "acquisitions_total",
			Help:      "Total number of shared-memory snapshots acquired via Facade.With.",
		}),
		snapshotHoldSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "pihole_api",
			Subsystem: "snapshot",
			Name:      "hold_seconds",
			Help:      "Duration the inter-process lock was held for one snapshot callback.",
			Buckets:   prometheus.DefBuckets,
		}),
		lockWaitSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "pihole_api",
			Subsystem: "snapshot",
			Name:      "lock_wait_seconds",
			Help:      "Duration spent waiting to acquire the inter-process lock.",
			Buckets:   prometheus.DefBuckets,
		}),

		socketCommandSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pihole_api",
			Subsystem: "socket",
			Name:      "command_seconds",
			Help:      "Duration of control-socket commands, by command name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		socketCommandFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "pihole_api",
			Subsystem: "socket",
			Name:      "command_failures_total",
			Help:      "Total control-socket command failures, by command name.",
		}, []string{"command"}),

		httpRequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pihole_api",
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "Duration of HTTP requests, by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),

		historyPagesServed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "pihole_api",
			Subsystem: "history",
			Name:      "pages_served_total",
			Help:      "Total number of history pages returned by /api/history.",
		}),

		filterPredicatePassThrough: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "pihole_api",
			Subsystem: "history",
			Name:      "filter_predicate_pass_total",
			Help:      "Total records that survived each history filter predicate, by predicate name.",
		}, []string{"predicate"}),
	}
}

// Registry returns the Prometheus registry backing m, or nil if m is nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an http.Handler serving the registry in the Prometheus
// exposition format, or nil if m is nil.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSnapshotAcquired records one successful Facade.With call, split
// into the time spent waiting for the lock and the time the lock was held
// for the callback (§4.D, §4.M).
func (m *Metrics) ObserveSnapshotAcquired(waited, held time.Duration) {
	if m == nil {
		return
	}
	m.snapshotAcquisitions.Inc()
	m.lockWaitSeconds.Observe(waited.Seconds())
	m.snapshotHoldSeconds.Observe(held.Seconds())
}

// ObserveSocketCommand records one control-socket command's duration and,
// when err is non-nil, increments the per-command failure counter (§4.M).
func (m *Metrics) ObserveSocketCommand(command string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.socketCommandSeconds.WithLabelValues(command).Observe(duration.Seconds())
	if err != nil {
		m.socketCommandFailures.WithLabelValues(command).Inc()
	}
}

// ObserveHTTPRequest records one HTTP request's duration against its
// route pattern, method and status class (§4.M).
func (m *Metrics) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestSeconds.WithLabelValues(route, method, statusClass(status)).Observe(duration.Seconds())
}

// ObserveHistoryPage increments the history-pages-served counter (§4.M).
func (m *Metrics) ObserveHistoryPage() {
	if m == nil {
		return
	}
	m.historyPagesServed.Inc()
}

// ObservePredicatePassThrough increments the pass-through counter for one
// named filter predicate (§4.F, §4.M).
func (m *Metrics) ObservePredicatePassThrough(predicate string) {
	if m == nil {
		return
	}
	m.filterPredicatePassThrough.WithLabelValues(predicate).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
