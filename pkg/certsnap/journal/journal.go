// Package journal persists a checkpoint's metadata: the ordered list of
// backed-up file paths, the list of registered new files, the undo
// commands, and the free-text change notes.
//
// The on-disk layout is compatible with stores written by earlier
// versions of the tool. Each list lives in its own JSON file inside the
// checkpoint directory, and a missing file reads as an empty list, so
// staging stays idempotent against half-initialized directories.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/fsutil"
)

// File names inside a checkpoint directory. Fixed by the on-disk format.
const (
	FilePathsName = "FILEPATHS"
	NewFilesName  = "NEW_FILES"
	CommandsName  = "COMMANDS"
	NotesName     = "CHANGES_SINCE"
)

// DirMode is the permission mode for checkpoint directories. Backups
// hold copies of host configuration, so group/world write is never set.
const DirMode = 0o755

// BackupSlot returns the path of the backup copy for the idx-th entry
// of the checkpoint's path list. The index suffix keeps two originals
// that share a base name from colliding.
func BackupSlot(dir, original string, idx int) string {
	return filepath.Join(dir, filepath.Base(original)+"_"+strconv.Itoa(idx))
}

// ReadPaths returns the ordered list of original file paths backed up
// in dir. A checkpoint that has never been staged yields an empty list.
func ReadPaths(dir string) ([]string, error) {
	return readList[string](filepath.Join(dir, FilePathsName))
}

// ReadNewFiles returns the ordered list of paths registered as created
// by this checkpoint.
func ReadNewFiles(dir string) ([]string, error) {
	return readList[string](filepath.Join(dir, NewFilesName))
}

// ReadCommands returns the registered undo commands in registration
// order. Each command is an argv list.
func ReadCommands(dir string) ([][]string, error) {
	return readList[[]string](filepath.Join(dir, CommandsName))
}

// ReadNotes returns the checkpoint's change notes. A checkpoint with no
// notes yields the empty string.
func ReadNotes(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, NotesName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read notes: %w", err)
	}
	return string(data), nil
}

// AddBackups records a backup of every file in files that is not
// already protected by the checkpoint at dir. Already-recorded paths
// are skipped: the earliest copy is the one recovery must restore.
// The checkpoint directory is created on first use.
//
// Returns the paths that were newly backed up. On error the checkpoint
// must be assumed to not safely protect the requested files.
func AddBackups(dir string, files []string) ([]string, error) {
	if err := fsutil.EnsureDir(dir, DirMode); err != nil {
		return nil, &snaperr.JournalError{Op: "backup", Path: dir, Err: err}
	}

	existing, err := ReadPaths(dir)
	if err != nil {
		return nil, &snaperr.JournalError{Op: "backup", Path: dir, Err: err}
	}

	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p] = true
	}

	var added []string
	idx := len(existing)
	for _, f := range files {
		if known[f] {
			continue
		}
		if err := fsutil.Copy(f, BackupSlot(dir, f, idx)); err != nil {
			return added, &snaperr.JournalError{Op: "backup", Path: f, Err: err}
		}
		existing = append(existing, f)
		added = append(added, f)
		known[f] = true
		idx++
	}

	if err := writeList(filepath.Join(dir, FilePathsName), existing); err != nil {
		return added, &snaperr.JournalError{Op: "persist", Path: filepath.Join(dir, FilePathsName), Err: err}
	}
	return added, nil
}

// RegisterNewFiles appends each path in paths to the checkpoint's new-file
// list if not already present. Call before the file is created, so a crash
// immediately after creation still leaves recovery knowing to delete it.
func RegisterNewFiles(dir string, paths []string) error {
	if err := fsutil.EnsureDir(dir, DirMode); err != nil {
		return &snaperr.JournalError{Op: "persist", Path: dir, Err: err}
	}

	target := filepath.Join(dir, NewFilesName)
	existing, err := readList[string](target)
	if err != nil {
		return &snaperr.JournalError{Op: "persist", Path: target, Err: err}
	}

	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p] = true
	}
	for _, p := range paths {
		if !known[p] {
			existing = append(existing, p)
			known[p] = true
		}
	}

	if err := writeList(target, existing); err != nil {
		return &snaperr.JournalError{Op: "persist", Path: target, Err: err}
	}
	return nil
}

// AppendCommand appends argv to the checkpoint's undo-command list.
func AppendCommand(dir string, argv []string) error {
	if err := fsutil.EnsureDir(dir, DirMode); err != nil {
		return &snaperr.JournalError{Op: "persist", Path: dir, Err: err}
	}

	target := filepath.Join(dir, CommandsName)
	commands, err := readList[[]string](target)
	if err != nil {
		return &snaperr.JournalError{Op: "persist", Path: target, Err: err}
	}
	commands = append(commands, argv)

	if err := writeList(target, commands); err != nil {
		return &snaperr.JournalError{Op: "persist", Path: target, Err: err}
	}
	return nil
}

// AppendNotes appends free text to the checkpoint's change notes.
func AppendNotes(dir, text string) error {
	if err := fsutil.EnsureDir(dir, DirMode); err != nil {
		return &snaperr.JournalError{Op: "persist", Path: dir, Err: err}
	}

	f, err := os.OpenFile(filepath.Join(dir, NotesName), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &snaperr.JournalError{Op: "persist", Path: filepath.Join(dir, NotesName), Err: err}
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return &snaperr.JournalError{Op: "persist", Path: filepath.Join(dir, NotesName), Err: err}
	}
	return nil
}

// readList reads a JSON-encoded list, treating both a missing file and
// an undecodable one as empty. Earlier versions of the tool wrote these
// files without any corruption marker, so an unreadable list degrades
// to "nothing recorded" rather than blocking staging.
func readList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, nil
	}
	return out, nil
}

// writeList writes a JSON-encoded list, replacing any existing file.
func writeList[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
