package commands

import (
	"context"

	"github.com/teranos/jobsweep/jobs"
	"github.com/teranos/jobsweep/jobs/mongostore"
	"github.com/teranos/jobsweep/logger"
)

// openStore connects to the document store; tests replace it
var openStore = func(ctx context.Context, uri, database, collection string) (jobs.Store, error) {
	return mongostore.Connect(ctx, uri, database, collection)
}

// closeStore releases the connection with a bounded timeout, independent of
// the (possibly cancelled) run context.
func closeStore(store jobs.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logger.Warnw("Failed to close store connection", logger.FieldError, err.Error())
	}
}
