package certsnap

import (
	"context"
	"os"
	"path/filepath"
	"time"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/fsutil"
	"github.com/randalmurphal/certsnap/pkg/certsnap/journal"
	"github.com/randalmurphal/certsnap/pkg/certsnap/observability"
	"github.com/randalmurphal/certsnap/pkg/certsnap/timestamp"
)

// placeholderNotes is written when a checkpoint is finalized without
// any notes ever having been appended.
const placeholderNotes = "No changes\n"

// renameAttempts bounds how many identifiers finalize will try before
// giving up on the commit rename.
const renameAttempts = 2

// Finalize promotes the in-progress checkpoint into a finalized,
// timestamped backup. It prepends a title line to the change notes and
// atomically renames the in-progress directory into the backup root.
//
// Finalize is a no-op when no in-progress checkpoint exists. On
// failure the in-progress checkpoint is left intact for a retry.
func (s *Store) Finalize(ctx context.Context, title string) error {
	if !fsutil.IsDir(s.paths.InProgressDir) {
		return nil
	}

	start := time.Now()
	ctx, span := observability.StartFinalizeSpan(ctx, title)

	id, err := s.finalize(title)

	observability.EndSpanWithError(span, err)
	s.metrics.RecordFinalize(ctx, time.Since(start), err)

	if err != nil {
		return err
	}
	observability.LogFinalize(s.logger, id, title)
	return nil
}

// finalize writes the title and commits the rename, returning the
// identifier of the new finalized checkpoint.
func (s *Store) finalize(title string) (string, error) {
	if err := s.writeTitle(title); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < renameAttempts; attempt++ {
		ids, err := s.finalizableIDs()
		if err != nil {
			return "", err
		}
		id, err := s.alloc.Next(ids)
		if err != nil {
			return "", err
		}

		dest := filepath.Join(s.paths.BackupDir, id)
		if err := os.Rename(s.paths.InProgressDir, dest); err != nil {
			observability.LogFinalizeRetry(s.logger, id, err)
			lastErr = err
			continue
		}
		return id, nil
	}
	return "", &snaperr.FinalizeError{Op: "rename", Err: lastErr}
}

// writeTitle prepends the "-- title --" line to the change notes via a
// temporary file swapped in atomically, defaulting the notes when none
// were ever appended.
func (s *Store) writeTitle(title string) error {
	notesPath := filepath.Join(s.paths.InProgressDir, journal.NotesName)

	if !fsutil.Exists(notesPath) {
		observability.LogEmptyCheckpoint(s.logger)
		if err := os.WriteFile(notesPath, []byte(placeholderNotes), 0o644); err != nil {
			return &snaperr.FinalizeError{Op: "title", Err: err}
		}
	}

	notes, err := os.ReadFile(notesPath)
	if err != nil {
		return &snaperr.FinalizeError{Op: "title", Err: err}
	}

	tmpPath := notesPath + ".tmp"
	titled := append([]byte("-- "+title+" --\n"), notes...)
	if err := os.WriteFile(tmpPath, titled, 0o644); err != nil {
		return &snaperr.FinalizeError{Op: "title", Err: err}
	}
	if err := fsutil.Replace(tmpPath, notesPath); err != nil {
		return &snaperr.FinalizeError{Op: "title", Err: err}
	}
	return nil
}

// finalizableIDs lists existing finalized identifiers for allocation,
// skipping entries that are not identifiers at all. Corruption is
// surfaced by the read paths (Changes, Rollback), not by finalize,
// which must stay able to commit new checkpoints.
func (s *Store) finalizableIDs() ([]string, error) {
	entries, err := os.ReadDir(s.paths.BackupDir)
	if err != nil {
		return nil, &snaperr.FinalizeError{Op: "rename", Err: err}
	}

	var ids []string
	for _, entry := range entries {
		if _, err := timestamp.Parse(entry.Name()); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}
