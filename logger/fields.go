package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings so log queries stay stable.
const (
	// Identity
	FieldJobID     = "job_id"
	FieldWorkerID  = "worker_id"
	FieldUser      = "user"
	FieldRequestID = "request_id"

	// Components
	FieldComponent = "component"

	// Sakura
	FieldTask      = "task"
	FieldEndpoint  = "endpoint"
	FieldGPU       = "gpu"
	FieldFailures  = "consecutive_failures"
	FieldBackoff   = "backoff"
	FieldQueueSize = "queue_size"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount = "count"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"

	FieldSymbol = "symbol"
)

type contextKey string

const (
	jobIDKey     contextKey = "logger_job_id"
	workerIDKey  contextKey = "logger_worker_id"
	requestIDKey contextKey = "logger_request_id"
)

// WithJobID adds a job ID to the context for logging
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// WithWorkerID adds a worker ID to the context for logging
func WithWorkerID(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, workerIDKey, workerID)
}

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FieldsFromContext extracts logging fields from context as key-value pairs
// suitable for Infow/Errorw.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if jobID, ok := ctx.Value(jobIDKey).(string); ok && jobID != "" {
		fields = append(fields, FieldJobID, jobID)
	}
	if workerID, ok := ctx.Value(workerIDKey).(string); ok && workerID != "" {
		fields = append(fields, FieldWorkerID, workerID)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}

	return fields
}

// LoggerFromContext returns base enriched with the fields carried by ctx.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for dependency injection.
//
//	store := sakura.NewJobStore(db, logger.ComponentLogger("sakura.store"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
