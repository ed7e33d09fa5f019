package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/jobs"
	jobstest "github.com/teranos/jobsweep/jobs/testutil"
)

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func seedResetStore() (*jobstest.MemStore, time.Time) {
	created := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	store := jobstest.NewMemStore()
	store.Add(
		jobstest.FailedJob("a", uuid.New(), created, 100),
		jobstest.FailedJob("b", uuid.New(), created.Add(time.Hour), 101),
		&jobstest.Doc{Key: "done", Status: "Completed", Version: 9, Metadata: map[string]interface{}{"keep": true}},
		&jobstest.Doc{Key: "pending", Status: jobs.StatusCreated, Version: 1},
	)
	return store, created
}

func TestReset_RequeuesFailedJobs(t *testing.T) {
	store, created := seedResetStore()
	log, logs := observedLogger()

	result, err := NewResetter(store, ResetterOptions{Logger: log}).Reset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Updated)
	assert.False(t, result.DryRun)

	a := store.Get("a")
	assert.Equal(t, jobs.StatusCreated, a.Status)
	assert.Equal(t, int32(0), a.Version)
	require.NotNil(t, a.UpdatedAt)
	assert.True(t, created.Equal(*a.UpdatedAt))
	assert.Equal(t, map[string]interface{}{jobs.MetadataBlockNumber: int64(100)}, a.Metadata)

	b := store.Get("b")
	assert.Equal(t, jobs.StatusCreated, b.Status)
	assert.Equal(t, map[string]interface{}{jobs.MetadataBlockNumber: int64(101)}, b.Metadata)

	assert.Equal(t, 2, logs.FilterMessage("Processing job").Len())
	done := logs.FilterMessage("Successfully updated 2 failed jobs").All()
	require.Len(t, done, 1)
	assert.Equal(t, UtilityReset, done[0].ContextMap()["utility"])
	assert.Contains(t, done[0].ContextMap(), "duration_ms")
}

func TestReset_LeavesOtherStatusesAlone(t *testing.T) {
	store, _ := seedResetStore()
	log, _ := observedLogger()

	_, err := NewResetter(store, ResetterOptions{Logger: log}).Reset(context.Background())
	require.NoError(t, err)

	done := store.Get("done")
	assert.Equal(t, jobs.Status("Completed"), done.Status)
	assert.Equal(t, int32(9), done.Version)
	assert.Equal(t, map[string]interface{}{"keep": true}, done.Metadata)
	assert.Nil(t, done.UpdatedAt)

	pending := store.Get("pending")
	assert.Equal(t, int32(1), pending.Version)
	assert.Nil(t, pending.UpdatedAt)
}

func TestReset_SecondRunUpdatesNothing(t *testing.T) {
	store, _ := seedResetStore()
	log, _ := observedLogger()
	resetter := NewResetter(store, ResetterOptions{Logger: log})

	first, err := resetter.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)

	second, err := resetter.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Scanned)
	assert.Equal(t, 0, second.Updated)
}

// matchedStore reports every update as matched but not modified, as the
// store does when a concurrent writer got there first
type matchedStore struct {
	*jobstest.MemStore
}

func (matchedStore) Requeue(context.Context, interface{}, jobs.Requeue) (bool, error) {
	return false, nil
}

func TestReset_UnmodifiedDocumentIsNotCounted(t *testing.T) {
	store, _ := seedResetStore()
	log, logs := observedLogger()

	result, err := NewResetter(matchedStore{store}, ResetterOptions{Logger: log}).Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, logs.FilterMessage("Job already in requeued state").Len())
	assert.Equal(t, 1, logs.FilterMessage("Successfully updated 0 failed jobs").Len())
}

func TestReset_ShapeErrorAbortsBatch(t *testing.T) {
	created := time.Now().UTC()
	store := jobstest.NewMemStore()
	store.Add(
		jobstest.FailedJob("first", uuid.New(), created, 1),
		&jobstest.Doc{Key: "broken", Status: jobs.StatusFailed, Metadata: map[string]interface{}{jobs.MetadataBlockNumber: 2}},
		jobstest.FailedJob("never", uuid.New(), created, 3),
	)
	log, logs := observedLogger()

	result, err := NewResetter(store, ResetterOptions{Logger: log}).Reset(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRecordShapeError(err))
	assert.Contains(t, err.Error(), "broken")

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, jobs.StatusCreated, store.Get("first").Status)
	assert.Equal(t, jobs.StatusFailed, store.Get("never").Status)
	assert.Equal(t, 1, logs.FilterMessage("Reset aborted").Len())
}

func TestReset_StoreErrors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		store := jobstest.NewMemStore()
		store.QueryErr = errors.WrapStore(errors.New("no reachable servers"), "failed to query failed jobs")
		log, _ := observedLogger()

		_, err := NewResetter(store, ResetterOptions{Logger: log}).Reset(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsStoreConnectionError(err))
	})

	t.Run("update", func(t *testing.T) {
		store, _ := seedResetStore()
		store.RequeueErr = errors.WrapStore(errors.New("write concern timeout"), "failed to update job document")
		log, _ := observedLogger()

		result, err := NewResetter(store, ResetterOptions{Logger: log}).Reset(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsStoreConnectionError(err))
		assert.Equal(t, 0, result.Updated)
		assert.Equal(t, 1, store.RequeueCalls)
	})
}

func TestReset_DryRun(t *testing.T) {
	store, _ := seedResetStore()
	log, logs := observedLogger()

	result, err := NewResetter(store, ResetterOptions{DryRun: true, Logger: log}).Reset(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, store.RequeueCalls)
	assert.Equal(t, jobs.StatusFailed, store.Get("a").Status)
	assert.Equal(t, 2, logs.FilterMessage("Would requeue job").Len())
}

func TestReset_Metrics(t *testing.T) {
	store, _ := seedResetStore()
	log, _ := observedLogger()
	m := NewMetrics()

	_, err := NewResetter(store, ResetterOptions{Metrics: m, Logger: log}).Reset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resetScanned))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.resetUpdated))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}
