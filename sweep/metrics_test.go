package sweep

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ResetScanned()
		m.ResetUpdated()
		m.RetryAttempt(OutcomeSuccess)
		m.RetrySkipped()
		m.ObserveDuration(UtilityRetry, time.Second)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push(context.Background(), "http://localhost:9091", "jobsweep", UtilityRetry))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.ResetScanned()
	m.ResetScanned()
	m.ResetUpdated()
	m.RetryAttempt(OutcomeSuccess)
	m.RetryAttempt(OutcomeFailure)
	m.RetryAttempt(OutcomeFailure)
	m.RetrySkipped()
	m.ObserveDuration(UtilityReset, 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resetScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resetUpdated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retryAttempts.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.retryAttempts.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retrySkipped))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.runDuration.WithLabelValues(UtilityReset)))
}

func TestMetrics_RegistryNames(t *testing.T) {
	m := NewMetrics()
	m.RetryAttempt(OutcomeSuccess)
	m.ObserveDuration(UtilityRetry, time.Second)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"jobsweep_reset_scanned_total",
		"jobsweep_reset_updated_total",
		"jobsweep_retry_attempts_total",
		"jobsweep_retry_skipped_total",
		"jobsweep_run_duration_seconds",
	}, names)
}

func TestMetrics_Push(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotBytes int
	)
	r := chi.NewRouter()
	r.Put("/metrics/job/{job}/utility/{utility}", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		mu.Lock()
		gotPath = req.URL.Path
		gotBytes = len(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	m := NewMetrics()
	m.RetryAttempt(OutcomeSuccess)

	require.NoError(t, m.Push(context.Background(), srv.URL, "jobsweep", UtilityRetry))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/jobsweep/utility/retry", gotPath)
	assert.Greater(t, gotBytes, 0)
}

func TestMetrics_PushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewMetrics().Push(context.Background(), srv.URL, "jobsweep", UtilityReset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}

func TestMetrics_PushDisabled(t *testing.T) {
	assert.NoError(t, NewMetrics().Push(context.Background(), "", "jobsweep", UtilityReset))
}
