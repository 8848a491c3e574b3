// Package fsutil provides the small set of filesystem primitives the
// checkpoint store depends on: mode-preserving copies, atomic replace,
// and existence checks.
package fsutil

import (
	"fmt"
	"io"
	"os"
)

// Copy copies src to dst, preserving the source's permission bits.
// dst is truncated if it already exists. The copy is byte-exact.
func Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}

	// The destination may predate the copy with different permissions.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod destination: %w", err)
	}
	return nil
}

// Replace atomically renames oldpath to newpath, replacing newpath if
// it exists. Go's os.Rename guarantees replace-or-fail-unchanged on
// supported platforms (rename(2) on POSIX, MoveFileEx with
// REPLACE_EXISTING on Windows), so a failed Replace never leaves a
// partially-written destination.
func Replace(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Exists reports whether path exists, without following symlinks.
// A dangling symlink still counts as existing.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureDir creates dir (and any missing parents) with the given mode
// if it does not already exist.
func EnsureDir(dir string, mode os.FileMode) error {
	return os.MkdirAll(dir, mode)
}
