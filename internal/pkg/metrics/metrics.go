package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Commit outcomes recorded by ObserveCommit.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the Prometheus collectors exported by the server.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec

	HTTPRequestDuration *prometheus.HistogramVec

	// Reservation commits by operation (create, update, cancel) and outcome.
	ReservationCommits *prometheus.CounterVec

	// Time spent inside a reservation commit, lock wait included.
	ReservationCommitDuration *prometheus.HistogramVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_commits_total",
				Help: "Reservation commits by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ReservationCommitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reservation_commit_duration_seconds",
				Help:    "Time spent committing a reservation, including lock wait",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationCommits,
		m.ReservationCommitDuration,
	)

	return m
}

// ObserveHTTP records one served request. A nil receiver is a no-op.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveCommit records one reservation commit. A nil receiver is a no-op.
func (m *Metrics) ObserveCommit(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReservationCommits.WithLabelValues(operation, outcome).Inc()
	m.ReservationCommitDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
