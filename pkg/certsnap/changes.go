package certsnap

import (
	"path/filepath"
	"strings"
	"time"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/journal"
	"github.com/randalmurphal/certsnap/pkg/certsnap/timestamp"
)

// BackupInfo describes one finalized checkpoint.
type BackupInfo struct {
	// ID is the checkpoint's timestamp identifier.
	ID string
	// Time is the identifier decoded as a point in time.
	Time time.Time
	// Notes is the checkpoint's change log, title line included.
	Notes string
	// Files are the original paths the checkpoint backed up.
	Files []string
	// NewFiles are the paths the checkpoint recorded as created.
	NewFiles []string
}

// Changes returns the finalized checkpoints, most recent first,
// optionally capped to limit (limit <= 0 means all). An empty backup
// root yields an empty slice, not an error; a backup-root entry that is
// not a timestamp identifier is CorruptStoreError.
func (s *Store) Changes(limit int) ([]BackupInfo, error) {
	ids, err := s.backupIDs()
	if err != nil {
		return nil, err
	}

	// backupIDs sorts ascending; read from the tail.
	infos := make([]BackupInfo, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(infos) == limit {
			break
		}
		info, err := s.readBackupInfo(ids[i])
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// readBackupInfo loads one finalized checkpoint's metadata.
func (s *Store) readBackupInfo(id string) (BackupInfo, error) {
	dir := filepath.Join(s.paths.BackupDir, id)

	value, err := timestamp.Parse(id)
	if err != nil {
		return BackupInfo{}, &snaperr.CorruptStoreError{Dir: s.paths.BackupDir, Entry: id}
	}

	notes, err := journal.ReadNotes(dir)
	if err != nil {
		return BackupInfo{}, &snaperr.JournalError{Op: "persist", Path: dir, Err: err}
	}
	files, err := journal.ReadPaths(dir)
	if err != nil {
		return BackupInfo{}, &snaperr.JournalError{Op: "persist", Path: dir, Err: err}
	}
	newFiles, err := journal.ReadNewFiles(dir)
	if err != nil {
		return BackupInfo{}, &snaperr.JournalError{Op: "persist", Path: dir, Err: err}
	}

	return BackupInfo{
		ID:       id,
		Time:     timestamp.Time(value),
		Notes:    notes,
		Files:    files,
		NewFiles: newFiles,
	}, nil
}

// FormatChanges renders checkpoint summaries as the human-readable
// change report shown by the owning tool's history command.
func FormatChanges(infos []BackupInfo) string {
	if len(infos) == 0 {
		return "The tool has not saved backups of your configuration\n"
	}

	var b strings.Builder
	for _, info := range infos {
		b.WriteString(info.Time.Format(time.ANSIC))
		b.WriteString("\n")
		b.WriteString(info.Notes)
		if !strings.HasSuffix(info.Notes, "\n") {
			b.WriteString("\n")
		}

		b.WriteString("Affected files:\n")
		for _, path := range info.Files {
			b.WriteString("  " + path + "\n")
		}

		if len(info.NewFiles) > 0 {
			b.WriteString("New Configuration Files:\n")
			for _, path := range info.NewFiles {
				b.WriteString("  " + path + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
