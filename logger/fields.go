package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldWorker    = "worker"
	FieldWorkers   = "workers"
	FieldCapacity  = "capacity"
	FieldReason    = "reason"
	FieldSent      = "sent"
	FieldMapped    = "mapped"
	FieldMode      = "mode"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Debug("distributor stopped", logger.Fields(logger.FieldSent, 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an error with a reason tag.
func ErrorFields(reason string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldReason: reason,
		FieldError:  err.Error(),
	}
}

// DurationFields creates fields for a timed run.
func DurationFields(reason string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldReason:   reason,
		FieldDuration: d.Milliseconds(),
	}
}
