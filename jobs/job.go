// Package jobs models the orchestrator's job records as the maintenance
// utilities see them, and the store operations they need.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/teranos/jobsweep/errors"
)

// Status is a job lifecycle state as persisted by the orchestrator
type Status string

const (
	StatusCreated Status = "Created"
	StatusFailed  Status = "Failed"
)

// MetadataBlockNumber is the only metadata key that survives a reset
const MetadataBlockNumber = "block_number_to_run"

// Record is a Failed job as read by the resetter. Optional fields are
// pointers or nil maps so a missing field can be told apart from a zero value.
type Record struct {
	DocID     interface{} // store document key (_id), used as the update filter
	Status    Status
	CreatedAt *time.Time             // nil when absent
	Metadata  map[string]interface{} // nil when absent
}

// DocIDString renders the document key for log lines. Object ids print as
// bare hex, the form operators paste into a shell query.
func (r Record) DocIDString() string {
	if h, ok := r.DocID.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	if s, ok := r.DocID.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", r.DocID)
}

// Requeue is the partial field set written when a Failed job is reset
type Requeue struct {
	Status    Status
	Version   int32
	UpdatedAt time.Time
	Metadata  map[string]interface{}
}

// NewRequeue builds the reset update for a record: status Created, version 0,
// updated_at copied from created_at, and metadata cut down to
// block_number_to_run. Any of those source fields missing is a record-shape
// error.
func NewRequeue(r Record) (Requeue, error) {
	if r.CreatedAt == nil {
		return Requeue{}, errors.NewRecordShapeError("job %s has no created_at", r.DocIDString())
	}
	if r.Metadata == nil {
		return Requeue{}, errors.NewRecordShapeError("job %s has no metadata", r.DocIDString())
	}
	block, ok := r.Metadata[MetadataBlockNumber]
	if !ok {
		return Requeue{}, errors.NewRecordShapeError("job %s metadata has no %s", r.DocIDString(), MetadataBlockNumber)
	}

	return Requeue{
		Status:    StatusCreated,
		Version:   0,
		UpdatedAt: *r.CreatedAt,
		Metadata:  map[string]interface{}{MetadataBlockNumber: block},
	}, nil
}

// Store is the document store as the utilities use it. Implementations must
// only ever touch records whose status is Failed in the Each* methods.
type Store interface {
	// EachFailed calls fn for every Failed record, full document.
	// An error returned by fn stops the iteration and is returned as is.
	EachFailed(ctx context.Context, fn func(Record) error) error

	// EachFailedID calls fn with the raw id field of every Failed record,
	// fetching batchSize documents per round trip.
	EachFailedID(ctx context.Context, batchSize int, fn func(IDField) error) error

	// Requeue applies the update to the record keyed by docID and reports
	// whether a document was actually modified.
	Requeue(ctx context.Context, docID interface{}, update Requeue) (bool, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}
