// Package metrics exposes registry health as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "party"

// Outcome labels for Operation.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// so tests and embedders may skip instrumentation.
type Metrics struct {
	gatherer prometheus.Gatherer

	parties      prometheus.Gauge
	members      prometheus.Gauge
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	skipped      prometheus.Counter
	operations   *prometheus.CounterVec
	expired      prometheus.Counter
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegisterer(reg, reg)
}

// NewWithRegisterer registers the collectors on reg and serves them from g.
func NewWithRegisterer(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: g,
		parties: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parties",
			Help:      "Number of live parties.",
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members",
			Help:      "Number of players that belong to a party.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Persistence flushes by result.",
		}, []string{"result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Time spent writing a snapshot to storage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_skipped_entries_total",
			Help:      "Stored entries dropped at load because they could not be decoded.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Registry operations by name and result.",
		}, []string{"operation", "result"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_requests_total",
			Help:      "Invites and join requests removed after their TTL.",
		}),
	}
	reg.MustRegister(m.parties, m.members, m.saves, m.saveDuration, m.skipped, m.operations, m.expired)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SetPopulation records the current party and member counts.
func (m *Metrics) SetPopulation(parties, members int) {
	if m == nil {
		return
	}
	m.parties.Set(float64(parties))
	m.members.Set(float64(members))
}

// ObserveSave records one flush attempt.
func (m *Metrics) ObserveSave(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
	m.saveDuration.Observe(d.Seconds())
}

// AddSkipped records entries dropped while loading.
func (m *Metrics) AddSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skipped.Add(float64(n))
}

// AddExpired records swept invites and join requests.
func (m *Metrics) AddExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}

// Operation records the outcome of a registry call.
func (m *Metrics) Operation(name string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultRejected
	}
	m.operations.WithLabelValues(name, result).Inc()
}
