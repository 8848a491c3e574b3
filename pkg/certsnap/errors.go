package certsnap

import "errors"

// Sentinel errors for input validation.
var (
	// ErrNoFilesProvided indicates a registration call named no files.
	ErrNoFilesProvided = errors.New("no files provided for registration")

	// ErrNegativeRollback indicates Rollback was called with a negative count.
	ErrNegativeRollback = errors.New("rollback count must be a non-negative integer")
)
