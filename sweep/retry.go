package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/internal/httpclient"
	"github.com/teranos/jobsweep/jobs"
	"github.com/teranos/jobsweep/logger"
)

// Caller issues one retry request. *httpclient.RetryClient implements it.
type Caller interface {
	Retry(ctx context.Context, jobID uuid.UUID) (httpclient.RetryResponse, error)
}

// RetrySummary is the outcome of one retrier run
type RetrySummary struct {
	Total      int // retry calls made
	Successful int
	Failed     int
	Skipped    int // records whose id could not be decoded; never called
	Duration   time.Duration
}

// RetrierOptions configures a Retrier
type RetrierOptions struct {
	BatchSize int           // cursor batch size; values below 1 mean 1
	Delay     time.Duration // pause after one call returns and before the next starts
	Metrics   *Metrics
	Logger    *zap.SugaredLogger
}

// Retrier asks the orchestrator to re-dispatch every Failed job
type Retrier struct {
	store     jobs.Store
	client    Caller
	batchSize int
	delay     time.Duration
	metrics   *Metrics
	logger    *zap.SugaredLogger
}

// NewRetrier creates a retrier reading ids from store and calling client
func NewRetrier(store jobs.Store, client Caller, opts RetrierOptions) *Retrier {
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("sweep.retry")
	}
	batch := opts.BatchSize
	if batch < 1 {
		batch = 1
	}
	return &Retrier{
		store:     store,
		client:    client,
		batchSize: batch,
		delay:     opts.Delay,
		metrics:   opts.Metrics,
		logger:    log,
	}
}

// CollectFailedIDs reads the id of every Failed job. Records whose id is
// absent, not binary or not 16 bytes are logged and counted in skipped.
func (r *Retrier) CollectFailedIDs(ctx context.Context) ([]uuid.UUID, int, error) {
	var (
		ids     []uuid.UUID
		skipped int
	)

	err := r.store.EachFailedID(ctx, r.batchSize, func(field jobs.IDField) error {
		r.logger.Debugw("Read job id", logger.FieldDocID, field.DocID, "raw", field.String())

		id, err := field.UUID()
		if err != nil {
			skipped++
			r.metrics.RetrySkipped()
			r.logger.Warnw("Skipping job with unusable id",
				logger.FieldDocID, field.DocID,
				logger.FieldError, err.Error(),
			)
			return nil
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, skipped, err
	}

	r.logger.Infow("Collected failed jobs",
		logger.FieldBatchSize, r.batchSize,
		logger.FieldCount, len(ids),
		"skipped", skipped,
	)
	return ids, skipped, nil
}

// Run collects every Failed job id and then calls the retry endpoint for
// each, one at a time. A failed call is counted and logged and the run goes
// on; store errors and cancellation end the run early with the partial
// summary.
func (r *Retrier) Run(ctx context.Context) (summary RetrySummary, err error) {
	start := time.Now()
	defer func() {
		summary.Duration = time.Since(start)
		r.metrics.ObserveDuration(UtilityRetry, summary.Duration)
	}()

	ids, skipped, err := r.CollectFailedIDs(ctx)
	summary.Skipped = skipped
	if err != nil {
		r.logger.Errorw("Retry run aborted while reading jobs", logger.FieldError, err.Error())
		return summary, err
	}

	pacer := NewPacer(r.delay)
	for i, id := range ids {
		if i > 0 {
			if pacer.Delay() > 0 {
				r.logger.Debugw(fmt.Sprintf("Waiting %v seconds before next retry", pacer.Delay().Seconds()),
					logger.FieldDelay, pacer.Delay().String(),
				)
			}
			if err := pacer.Pause(ctx); err != nil {
				return summary, errors.Wrap(err, "retry run interrupted")
			}
		}

		jobLog := logger.ChildLogger(r.logger, logger.FieldJobID, id.String())
		jobLog.Debugw("Retrying job", logger.FieldIndex, i+1, logger.FieldTotalCount, len(ids))

		resp, err := r.client.Retry(ctx, id)
		if err != nil && ctx.Err() != nil {
			return summary, errors.Wrap(ctx.Err(), "retry run interrupted")
		}
		summary.Total++

		if resp.StatusCode != 0 {
			jobLog.Debugw("Retry response",
				logger.FieldURL, resp.URL,
				logger.FieldStatusCode, resp.StatusCode,
				logger.FieldResponse, resp.Preview,
			)
		}

		if err != nil {
			summary.Failed++
			r.metrics.RetryAttempt(OutcomeFailure)
			jobLog.Errorw("Failed to retry job",
				logger.FieldStatusCode, resp.StatusCode,
				logger.FieldError, err.Error(),
			)
			continue
		}
		summary.Successful++
		r.metrics.RetryAttempt(OutcomeSuccess)
		jobLog.Infow("Successfully retried job", logger.FieldStatusCode, resp.StatusCode)
	}

	r.logger.Infow("Retry summary",
		logger.FieldUtility, UtilityRetry,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
		logger.FieldTotalCount, summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}
