package sweep

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/teranos/jobsweep/errors"
)

// Utility names used as the utility label and push grouping key
const (
	UtilityReset = "reset"
	UtilityRetry = "retry"
)

// Retry attempt outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the counters of one run. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	resetScanned  prometheus.Counter
	resetUpdated  prometheus.Counter
	retryAttempts *prometheus.CounterVec
	retrySkipped  prometheus.Counter
	runDuration   *prometheus.GaugeVec
}

// NewMetrics registers the run metrics on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resetScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobsweep_reset_scanned_total",
			Help: "Failed jobs read by the resetter.",
		}),
		resetUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobsweep_reset_updated_total",
			Help: "Failed jobs the store reported as modified by the resetter.",
		}),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsweep_retry_attempts_total",
			Help: "Retry endpoint calls by outcome.",
		}, []string{"outcome"}),
		retrySkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobsweep_retry_skipped_total",
			Help: "Failed jobs skipped because their id could not be decoded.",
		}),
		runDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobsweep_run_duration_seconds",
			Help: "Wall time of the last run.",
		}, []string{"utility"}),
	}
	m.registry.MustRegister(m.resetScanned, m.resetUpdated, m.retryAttempts, m.retrySkipped, m.runDuration)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ResetScanned() {
	if m != nil {
		m.resetScanned.Inc()
	}
}

func (m *Metrics) ResetUpdated() {
	if m != nil {
		m.resetUpdated.Inc()
	}
}

func (m *Metrics) RetryAttempt(outcome string) {
	if m != nil {
		m.retryAttempts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) RetrySkipped() {
	if m != nil {
		m.retrySkipped.Inc()
	}
}

// ObserveDuration records how long a run of utility took
func (m *Metrics) ObserveDuration(utility string, d time.Duration) {
	if m != nil {
		m.runDuration.WithLabelValues(utility).Set(d.Seconds())
	}
}

// Push sends the registry to a Pushgateway, grouped by job and utility.
// The caller decides whether a failure matters.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, utility string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).
		Gatherer(m.registry).
		Grouping("utility", utility).
		PushContext(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to push metrics to %s", gatewayURL)
	}
	return nil
}
