// Package config defines the directory layout a checkpoint store
// operates on. The three checkpoint directories are always explicit
// configuration owned by the store, never ambient process-wide paths.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Paths names the three directories owned by a checkpoint store: the
// backup root holding one subdirectory per finalized checkpoint, and
// its two siblings for the in-progress and temporary checkpoints.
type Paths struct {
	// BackupDir is the backup root for finalized checkpoints.
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`

	// InProgressDir holds the single accumulating checkpoint, present
	// only while one is active.
	InProgressDir string `yaml:"in_progress_dir" json:"in_progress_dir"`

	// TempDir holds the single temporary checkpoint, present only
	// while one is active.
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
}

// DefaultPaths lays out the three checkpoint directories under workDir.
func DefaultPaths(workDir string) Paths {
	return Paths{
		BackupDir:     filepath.Join(workDir, "backups"),
		InProgressDir: filepath.Join(workDir, "in_progress"),
		TempDir:       filepath.Join(workDir, "temp_checkpoint"),
	}
}

// Validate checks that all three directories are named, distinct, and
// that neither working directory sits inside the backup root, where it
// would be mistaken for a finalized checkpoint.
func (p Paths) Validate() error {
	if p.BackupDir == "" || p.InProgressDir == "" || p.TempDir == "" {
		return errors.New("all three checkpoint directories must be set")
	}
	if p.BackupDir == p.InProgressDir || p.BackupDir == p.TempDir || p.InProgressDir == p.TempDir {
		return errors.New("checkpoint directories must be distinct")
	}
	for _, dir := range []string{p.InProgressDir, p.TempDir} {
		rel, err := filepath.Rel(p.BackupDir, dir)
		if err == nil && rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel) {
			return fmt.Errorf("directory %s must not be inside the backup root %s", dir, p.BackupDir)
		}
	}
	return nil
}

// startsWithParent reports whether a relative path escapes upward.
func startsWithParent(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
