// Package mongostore is the MongoDB implementation of jobs.Store.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/jobs"
	"github.com/teranos/jobsweep/logger"
)

const (
	appName        = "jobsweep"
	connectTimeout = 30 * time.Second
)

// Store reads and requeues job documents in one collection
type Store struct {
	client *mongo.Client // nil when the collection was handed in by the caller
	coll   *mongo.Collection
	logger *zap.SugaredLogger
}

var _ jobs.Store = (*Store)(nil)

// Connect dials the cluster at uri and pings the primary before returning,
// so a bad connection string fails here rather than on the first query.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WithHint(
			errors.WrapStore(err, "failed to connect to document store"),
			"check store.connection_string (or MONGO_URI)",
		)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.WithHint(
			errors.WrapStore(err, "document store did not answer ping"),
			"is the cluster reachable from this host?",
		)
	}

	s := New(client.Database(database).Collection(collection))
	s.client = client
	s.logger.Debugw("Connected to document store",
		logger.FieldDatabase, database,
		logger.FieldCollection, collection,
	)
	return s, nil
}

// New wraps an existing collection. Close is a no-op for stores built this way.
func New(coll *mongo.Collection) *Store {
	return &Store{
		coll:   coll,
		logger: logger.ComponentLogger("store.mongo"),
	}
}

func failedFilter() bson.M {
	return bson.M{"status": string(jobs.StatusFailed)}
}

// document is the subset of a job document the resetter needs
type document struct {
	ID        interface{}            `bson:"_id"`
	Status    string                 `bson:"status"`
	CreatedAt *time.Time             `bson:"created_at,omitempty"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty"`
}

// EachFailed streams every Failed document through fn
func (s *Store) EachFailed(ctx context.Context, fn func(jobs.Record) error) error {
	cursor, err := s.coll.Find(ctx, failedFilter())
	if err != nil {
		return errors.WrapStore(err, "failed to query failed jobs")
	}
	defer cursor.Close(context.Background())

	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return errors.Wrapf(errors.Mark(err, errors.ErrRecordShape),
				"failed to decode job document %s", docKey(cursor.Current.Lookup("_id")))
		}
		if logger.TraceEnabled() {
			s.logger.Debugw("Read document", "raw", cursor.Current.String())
		}

		rec := jobs.Record{
			DocID:     doc.ID,
			Status:    jobs.Status(doc.Status),
			CreatedAt: doc.CreatedAt,
			Metadata:  doc.Metadata,
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return errors.WrapStore(err, "failed while iterating failed jobs")
	}
	return nil
}

// EachFailedID streams only the id field of Failed documents. The raw value
// is handed over undecoded so the caller can tell a missing id from a
// malformed one.
func (s *Store) EachFailedID(ctx context.Context, batchSize int, fn func(jobs.IDField) error) error {
	opts := options.Find().SetProjection(bson.M{"id": 1})
	if batchSize > 0 {
		opts.SetBatchSize(int32(batchSize))
	}

	cursor, err := s.coll.Find(ctx, failedFilter(), opts)
	if err != nil {
		return errors.WrapStore(err, "failed to query failed job ids")
	}
	defer cursor.Close(context.Background())

	for cursor.Next(ctx) {
		if err := fn(idField(cursor.Current)); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return errors.WrapStore(err, "failed while iterating failed job ids")
	}
	return nil
}

func idField(raw bson.Raw) jobs.IDField {
	field := jobs.IDField{DocID: docKey(raw.Lookup("_id"))}

	rv, err := raw.LookupErr("id")
	if err != nil {
		return field
	}
	field.Present = true
	field.Kind = rv.Type.String()
	if rv.Type == bson.TypeBinary {
		subtype, data := rv.Binary()
		field.Binary = true
		field.Subtype = subtype
		field.Data = data
	}
	return field
}

// docKey renders _id the way an operator would type it into a shell
func docKey(rv bson.RawValue) string {
	if oid, ok := rv.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if str, ok := rv.StringValueOK(); ok {
		return str
	}
	return rv.String()
}

// Requeue sets the reset fields on the document keyed by docID
func (s *Store) Requeue(ctx context.Context, docID interface{}, update jobs.Requeue) (bool, error) {
	set := bson.M{
		"status":     string(update.Status),
		"version":    update.Version,
		"updated_at": update.UpdatedAt,
		"metadata":   update.Metadata,
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": docID}, bson.M{"$set": set})
	if err != nil {
		return false, errors.WrapStore(err, "failed to update job document")
	}
	return res.ModifiedCount > 0, nil
}

// Close disconnects the client if this store opened it
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.WrapStore(err, "failed to disconnect from document store")
	}
	return nil
}
