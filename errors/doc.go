// Package errors provides the structured error type used across loop.
//
// AppError carries a machine-readable code, a human-readable message and an
// optional cause, and supports errors.Is/errors.As through Unwrap. The pool
// itself only ever produces QUEUE_CLOSED, and only internally: a closed
// queue end is a shutdown signal, never a failure reported to callers.
// Configuration problems are reported as INVALID_CONFIG.
package errors
