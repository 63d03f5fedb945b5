package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Structured generation errors
	ErrGenerationFailed  = fmt.Errorf("generation request failed")
	ErrAttemptsExhausted = fmt.Errorf("all generation attempts failed")
	ErrInvalidFormat     = fmt.Errorf("invalid response format")
	ErrSchemaViolation   = fmt.Errorf("schema violation")

	// Embedding and index errors
	ErrEmbeddingFailed  = fmt.Errorf("embedding request failed")
	ErrIndexUnavailable = fmt.Errorf("vector index unavailable")
	ErrConsistency      = fmt.Errorf("artifact consistency violation")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrNoComments         = fmt.Errorf("no comments found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
