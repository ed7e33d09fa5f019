// Package sweep holds the two maintenance procedures run over Failed jobs:
// the resetter, which requeues them in place, and the retrier, which asks
// the orchestrator to re-dispatch them.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/jobs"
	"github.com/teranos/jobsweep/logger"
)

// ResetResult is the outcome of one resetter run
type ResetResult struct {
	Scanned  int // Failed records read
	Updated  int // records the store reported as modified
	DryRun   bool
	Duration time.Duration
}

// ResetterOptions configures a Resetter. Zero values are usable.
type ResetterOptions struct {
	DryRun  bool
	Metrics *Metrics
	Logger  *zap.SugaredLogger
}

// Resetter moves every Failed job back to Created in the store
type Resetter struct {
	store   jobs.Store
	dryRun  bool
	metrics *Metrics
	logger  *zap.SugaredLogger
}

// NewResetter creates a resetter over store
func NewResetter(store jobs.Store, opts ResetterOptions) *Resetter {
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("sweep.reset")
	}
	return &Resetter{
		store:   store,
		dryRun:  opts.DryRun,
		metrics: opts.Metrics,
		logger:  log,
	}
}

// Reset rewrites every Failed record to status Created, version 0,
// updated_at = created_at and metadata = {block_number_to_run}. A record
// missing one of those source fields aborts the run; records already
// updated stay updated.
func (r *Resetter) Reset(ctx context.Context) (result ResetResult, err error) {
	start := time.Now()
	result.DryRun = r.dryRun
	defer func() {
		result.Duration = time.Since(start)
		r.metrics.ObserveDuration(UtilityReset, result.Duration)
	}()

	err = r.store.EachFailed(ctx, func(rec jobs.Record) error {
		result.Scanned++
		r.metrics.ResetScanned()

		docID := rec.DocIDString()
		r.logger.Infow("Processing job", logger.FieldDocID, docID)

		update, err := jobs.NewRequeue(rec)
		if err != nil {
			return err
		}

		if r.dryRun {
			r.logger.Infow("Would requeue job",
				logger.FieldDocID, docID,
				"updated_at", update.UpdatedAt.Format(time.RFC3339),
				jobs.MetadataBlockNumber, update.Metadata[jobs.MetadataBlockNumber],
			)
			return nil
		}

		modified, err := r.store.Requeue(ctx, rec.DocID, update)
		if err != nil {
			return errors.Wrapf(err, "failed to requeue job %s", docID)
		}
		if modified {
			result.Updated++
			r.metrics.ResetUpdated()
		} else {
			r.logger.Debugw("Job already in requeued state", logger.FieldDocID, docID)
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("Reset aborted",
			logger.FieldCount, result.Updated,
			logger.FieldError, err.Error(),
		)
		return result, err
	}

	r.logger.Infow(fmt.Sprintf("Successfully updated %d failed jobs", result.Updated),
		logger.FieldUtility, UtilityReset,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
		logger.FieldCount, result.Updated,
		logger.FieldTotalCount, result.Scanned,
	)
	return result, nil
}
