// Package testutil provides an in-memory jobs.Store for tests.
package testutil

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/jobsweep/jobs"
)

// Doc is one stored job document. Nil pointers stand for absent fields.
type Doc struct {
	Key       string
	Status    jobs.Status
	Version   int32
	ID        *jobs.IDField
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Metadata  map[string]interface{}
}

// MemStore keeps documents in insertion order
type MemStore struct {
	mu   sync.Mutex
	docs []*Doc

	// Injected failures
	QueryErr   error
	RequeueErr error

	Closed       bool
	RequeueCalls int
	BatchSizes   []int
}

var _ jobs.Store = (*MemStore)(nil)

// NewMemStore returns an empty store
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Add appends documents
func (m *MemStore) Add(docs ...*Doc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
}

// Get returns the document stored under key, or nil
func (m *MemStore) Get(key string) *Doc {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.Key == key {
			return d
		}
	}
	return nil
}

// FailedJob builds a Failed document with a binary UUID id, a created_at and
// metadata carrying block_number_to_run plus one extra key.
func FailedJob(key string, id uuid.UUID, created time.Time, block int64) *Doc {
	return &Doc{
		Key:       key,
		Status:    jobs.StatusFailed,
		Version:   3,
		ID:        UUIDField(key, id),
		CreatedAt: &created,
		Metadata: map[string]interface{}{
			jobs.MetadataBlockNumber: block,
			"failure_reason":         "prover timed out",
		},
	}
}

// UUIDField is the id field as the store would return a standard UUID
func UUIDField(key string, id uuid.UUID) *jobs.IDField {
	data := make([]byte, 16)
	copy(data, id[:])
	return &jobs.IDField{DocID: key, Present: true, Binary: true, Subtype: 0x04, Data: data, Kind: "binary"}
}

func (m *MemStore) failed() []*Doc {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Doc
	for _, d := range m.docs {
		if d.Status == jobs.StatusFailed {
			out = append(out, d)
		}
	}
	return out
}

// EachFailed implements jobs.Store
func (m *MemStore) EachFailed(ctx context.Context, fn func(jobs.Record) error) error {
	if m.QueryErr != nil {
		return m.QueryErr
	}
	for _, d := range m.failed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := jobs.Record{DocID: d.Key, Status: d.Status, CreatedAt: d.CreatedAt}
		if d.Metadata != nil {
			rec.Metadata = make(map[string]interface{}, len(d.Metadata))
			for k, v := range d.Metadata {
				rec.Metadata[k] = v
			}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// EachFailedID implements jobs.Store
func (m *MemStore) EachFailedID(ctx context.Context, batchSize int, fn func(jobs.IDField) error) error {
	m.mu.Lock()
	m.BatchSizes = append(m.BatchSizes, batchSize)
	m.mu.Unlock()

	if m.QueryErr != nil {
		return m.QueryErr
	}
	for _, d := range m.failed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		field := jobs.IDField{DocID: d.Key}
		if d.ID != nil {
			field = *d.ID
		}
		if err := fn(field); err != nil {
			return err
		}
	}
	return nil
}

// Requeue implements jobs.Store. Writing values identical to the stored
// ones reports no modification, as a real store does.
func (m *MemStore) Requeue(ctx context.Context, docID interface{}, update jobs.Requeue) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequeueCalls++

	if m.RequeueErr != nil {
		return false, m.RequeueErr
	}
	key := fmt.Sprint(docID)
	for _, d := range m.docs {
		if d.Key != key {
			continue
		}
		unchanged := d.Status == update.Status &&
			d.Version == update.Version &&
			d.UpdatedAt != nil && d.UpdatedAt.Equal(update.UpdatedAt) &&
			reflect.DeepEqual(d.Metadata, update.Metadata)
		if unchanged {
			return false, nil
		}
		updated := update.UpdatedAt
		d.Status = update.Status
		d.Version = update.Version
		d.UpdatedAt = &updated
		d.Metadata = update.Metadata
		return true, nil
	}
	return false, nil
}

// Close implements jobs.Store
func (m *MemStore) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
