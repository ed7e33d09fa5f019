package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity
	FieldJobID = "job_id" // textual job UUID
	FieldDocID = "doc_id" // store document key (_id)

	// Components
	FieldUtility = "utility"

	// Store
	FieldDatabase   = "database"
	FieldCollection = "collection"
	FieldBatchSize  = "batch_size"

	// Remote calls
	FieldURL        = "url"
	FieldStatusCode = "status_code"
	FieldResponse   = "response"

	// Progress
	FieldIndex      = "index"
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldDelay      = "delay"
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldStack     = "stack"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Retrier struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewRetrier() *Retrier {
//	    return &Retrier{
//	        logger: logger.ComponentLogger("sweep.retry"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
//	jobLogger := logger.ChildLogger(baseLogger, logger.FieldJobID, id)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
