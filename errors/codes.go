package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Queue lifecycle errors
const (
	// ErrCodeQueueClosed indicates the peer end of a queue has been closed.
	ErrCodeQueueClosed ErrorCode = "QUEUE_CLOSED"
	// ErrCodeCancelled indicates a suspended operation was abandoned because its context ended.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates a configuration value failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeMissingField indicates a required configuration field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeCancelled: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
