// internal/utils/fields.go
package utils

// Shared structured-log field names, so the same concept stays searchable
// across components.
const (
	FieldSignal   = "signal"
	FieldHost     = "host"
	FieldPort     = "port"
	FieldBatchID  = "batch_id"
	FieldProvider = "provider"
	FieldKey      = "key"
	FieldCount    = "count"
	FieldAttempt  = "attempt"
	FieldStatus   = "status"
	FieldEndpoint = "endpoint"
	FieldPath     = "path"
)
