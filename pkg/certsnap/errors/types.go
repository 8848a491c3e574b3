// Package errors defines the error taxonomy for checkpoint staging,
// finalization, and recovery.
//
// Every failure mode of the store maps to exactly one type here:
//   - JournalError: backup or restore I/O failed
//   - OverwriteError: staging conflict between temporary and in-progress
//   - AllocationError: timestamp allocation exhausted its bump attempts
//   - FinalizeError: notes write or commit rename failed
//   - CorruptStoreError: backup root contains a non-timestamp entry
//   - RecoveryError: undo, restore, or cleanup failed during recovery
//
// All types support errors.As and, where an underlying cause exists,
// errors.Is via Unwrap.
package errors

import "fmt"

// JournalError indicates a backup or restore I/O failure.
// After a JournalError the checkpoint must be assumed to not
// safely protect the named path.
type JournalError struct {
	// Op is the operation that failed ("backup", "restore", "persist").
	Op string
	// Path is the file the operation was acting on.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *JournalError) Error() string {
	return fmt.Sprintf("journal %s of %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *JournalError) Unwrap() error {
	return e.Err
}

// OverwriteError indicates a staging conflict: the path is already
// protected by the other checkpoint class, and backing it up again
// would clobber a not-yet-reverted change.
type OverwriteError struct {
	// Path is the offending file path.
	Path string
}

// Error implements the error interface.
func (e *OverwriteError) Error() string {
	return fmt.Sprintf("attempting to overwrite protected file %s", e.Path)
}

// AllocationError indicates the timestamp allocator could not produce
// an identifier strictly greater than all existing ones within its
// bounded bump attempts. Not retryable within the same call.
type AllocationError struct {
	// Candidate is the last identifier attempted.
	Candidate string
	// Attempts is the number of bump attempts made.
	Attempts int
}

// Error implements the error interface.
func (e *AllocationError) Error() string {
	return fmt.Sprintf("unable to allocate checkpoint timestamp after %d attempts (last candidate %s)",
		e.Attempts, e.Candidate)
}

// FinalizeError indicates the in-progress checkpoint could not be
// promoted. The in-progress directory is left intact for a retry.
type FinalizeError struct {
	// Op is the step that failed ("title", "rename").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize checkpoint (%s): %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *FinalizeError) Unwrap() error {
	return e.Err
}

// CorruptStoreError indicates the backup root contains an entry that is
// not a valid timestamp identifier. It distinguishes a damaged store
// from the ordinary "no checkpoints yet" case, which is not an error.
type CorruptStoreError struct {
	// Dir is the backup root directory.
	Dir string
	// Entry is the offending directory entry.
	Entry string
}

// Error implements the error interface.
func (e *CorruptStoreError) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("invalid checkpoint identifier %q in backup directory", e.Entry)
	}
	return fmt.Sprintf("invalid entry %q in backup directory %s", e.Entry, e.Dir)
}

// RecoveryError indicates a checkpoint could not be fully unwound.
// The host configuration may be in a partially-reverted state; the
// checkpoint directory is left in place for inspection.
type RecoveryError struct {
	// Dir is the checkpoint directory being recovered.
	Dir string
	// Op is the recovery step that failed ("commands", "restore", "remove").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RecoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recovery of %s failed during %s: %v", e.Dir, e.Op, e.Err)
	}
	return fmt.Sprintf("recovery of %s failed during %s", e.Dir, e.Op)
}

// Unwrap returns the underlying error.
func (e *RecoveryError) Unwrap() error {
	return e.Err
}
