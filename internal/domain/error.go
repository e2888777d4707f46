package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrRateLimited       = errors.New("rate limit exceeded")

	// Generation outcomes, recorded on the job rather than returned to callers.
	ErrGenerationFailed  = errors.New("generation failed")
	ErrGenerationTimeout = errors.New("generation timed out")
	ErrNoGenerator       = errors.New("no generator registered for job type")

	// Storage plumbing
	ErrReadDatabaseRow    = errors.New("could not read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
