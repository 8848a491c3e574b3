package certsnap

import (
	"context"
	"fmt"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/fsutil"
)

// RevertTemporary recovers the temporary checkpoint if one exists.
// Nothing to revert is not an error.
func (s *Store) RevertTemporary(ctx context.Context) error {
	if !fsutil.IsDir(s.paths.TempDir) {
		return nil
	}
	if err := s.engine.Recover(ctx, s.paths.TempDir); err != nil {
		return &snaperr.RecoveryError{
			Dir: s.paths.TempDir,
			Op:  "revert",
			Err: fmt.Errorf("unable to revert temporary config: %w", err),
		}
	}
	return nil
}

// RecoveryRoutine cleans up after a previous crash. Call once at the
// start of every invocation of the owning tool, before any plugin runs.
//
// The temporary checkpoint is always unwound first: its changes are
// layered after the in-progress checkpoint's changes, so reverting
// in-progress first would overwrite freshly restored files with stale
// backups. The in-progress checkpoint is recovered only if the
// temporary revert succeeded.
func (s *Store) RecoveryRoutine(ctx context.Context) error {
	if err := s.RevertTemporary(ctx); err != nil {
		return err
	}

	if !fsutil.IsDir(s.paths.InProgressDir) {
		return nil
	}
	if err := s.engine.Recover(ctx, s.paths.InProgressDir); err != nil {
		return &snaperr.RecoveryError{
			Dir: s.paths.InProgressDir,
			Op:  "revert",
			Err: fmt.Errorf("incomplete or failed recovery for in-progress checkpoint: %w", err),
		}
	}
	return nil
}
