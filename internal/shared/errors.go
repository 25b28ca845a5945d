package shared

import "errors"

// Error taxonomy shared by every module. Services wrap these with %w and
// enough context to identify the failing field or line; the HTTP layer maps
// them to status codes with errors.Is.
var (
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or referential-integrity violation.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates caller-supplied data violates a precondition.
	ErrValidation = errors.New("validation failed")
	// ErrInternal indicates a storage or infrastructure failure.
	ErrInternal = errors.New("internal error")
)
