package certsnap

import (
	"context"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/journal"
	"github.com/randalmurphal/certsnap/pkg/certsnap/observability"
)

// StageTemporary backs up the current contents of files into the
// temporary checkpoint and appends note to its change notes. Call
// before mutating the files.
//
// A file already protected by the in-progress checkpoint (as a backup
// or a registered new file) cannot be staged temporarily: the
// not-yet-finalized change would be clobbered. That is OverwriteError.
func (s *Store) StageTemporary(ctx context.Context, files []string, note string) error {
	if err := s.checkProtected(files, s.paths.InProgressDir); err != nil {
		return err
	}
	return s.stage(ctx, true, files, note)
}

// StagePermanent backs up the current contents of files into the
// in-progress checkpoint and appends note to its change notes. Call
// before mutating the files.
//
// A file currently protected by the temporary checkpoint cannot be
// staged: temporary changes are always more recent and must be unwound
// first. That is OverwriteError.
func (s *Store) StagePermanent(ctx context.Context, files []string, note string) error {
	if err := s.checkProtected(files, s.paths.TempDir); err != nil {
		return err
	}
	return s.stage(ctx, false, files, note)
}

// stage records backups and the note against the chosen checkpoint.
func (s *Store) stage(ctx context.Context, temporary bool, files []string, note string) error {
	dir := s.checkpointDir(temporary)

	added, err := journal.AddBackups(dir, files)
	for i, path := range added {
		observability.LogBackupCreated(s.logger, path, i)
	}
	if err != nil {
		return err
	}
	s.metrics.RecordStage(ctx, temporary, len(added))

	if note == "" {
		return nil
	}
	return journal.AppendNotes(dir, note)
}

// RegisterNewFiles records paths the caller is about to create against
// the chosen checkpoint, so recovery knows to delete them. Must be
// called before the files are created; requires at least one path.
func (s *Store) RegisterNewFiles(temporary bool, paths ...string) error {
	if len(paths) == 0 {
		return ErrNoFilesProvided
	}
	return journal.RegisterNewFiles(s.checkpointDir(temporary), paths)
}

// RegisterUndoCommand records a command to run, in registration order,
// when the chosen checkpoint is recovered.
//
// Order of operations between file modification and command
// registration is not enforced: during recovery all undo commands run
// before any file is restored. Callers needing strict interleaving
// should finalize checkpoints around the command registration.
func (s *Store) RegisterUndoCommand(temporary bool, argv []string) error {
	return journal.AppendCommand(s.checkpointDir(temporary), argv)
}

// checkProtected fails with OverwriteError if any of files is already
// protected (backed up or registered as new) by the checkpoint at
// otherDir.
func (s *Store) checkProtected(files []string, otherDir string) error {
	protected, err := journal.ReadPaths(otherDir)
	if err != nil {
		return &snaperr.JournalError{Op: "backup", Path: otherDir, Err: err}
	}
	newFiles, err := journal.ReadNewFiles(otherDir)
	if err != nil {
		return &snaperr.JournalError{Op: "backup", Path: otherDir, Err: err}
	}
	protected = append(protected, newFiles...)

	guarded := make(map[string]bool, len(protected))
	for _, p := range protected {
		guarded[p] = true
	}
	for _, f := range files {
		if guarded[f] {
			return &snaperr.OverwriteError{Path: f}
		}
	}
	return nil
}
