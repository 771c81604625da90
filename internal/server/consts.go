package server

const (
	HealthEndpoint = "/health"

	APIGroup          = "/api"
	ValidateRoute     = "/validate"
	ValidateFileRoute = "/validate/file"
	ModelsRoute       = "/models"

	AdvancedGroup        = "/advanced"
	AnalyzeRoute         = "/analyze"
	ProvidersHealthRoute = "/health"
	GlobalHealthRoute    = "/health/global"
	ProviderHealthRoute  = "/health/:provider"
)

const (
	StatusHealthy = "healthy"
)

const (
	MessageInvalidRequestBody = "Invalid request body"
	MessageNoKeys             = "No API keys found in input"
	MessageNoFile             = "No file found in request"
	MessageFileTooLarge       = "Uploaded file exceeds the size limit"
	MessageInvalidToken       = "Invalid token"
)

// MaxUploadBytes bounds key-file uploads. A full batch of keys fits in a few
// kilobytes, so anything near this limit is not a key list.
const MaxUploadBytes = 1 << 20

const (
	ErrorCodeInvalidRequestBody = "invalid_request_body"
	ErrorCodeValidationFailed   = "validation_failed"
	ErrorCodeBatchTooLarge      = "batch_too_large"
	ErrorCodeUnknownProvider    = "unknown_provider"
	ErrorCodeBatchAborted       = "batch_aborted"
)

const (
	TooManyKeysMessageFmt = "Batch exceeds the maximum of %d keys"
)
