package certsnap_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/certsnap/pkg/certsnap"
	"github.com/randalmurphal/certsnap/pkg/certsnap/config"
)

// quietLogger discards log output so expected warnings don't pollute
// test output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tickingClock returns a strictly later instant on every call, so
// consecutive finalizes get naturally distinct identifiers.
type tickingClock struct {
	t time.Time
}

func (c *tickingClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// frozenClock always reports the same instant.
type frozenClock struct {
	t time.Time
}

func (c frozenClock) Now() time.Time { return c.t }

// newTestStore creates a store over a fresh temp directory.
func newTestStore(t *testing.T, opts ...certsnap.Option) (*certsnap.Store, string) {
	t.Helper()
	work := t.TempDir()

	opts = append([]certsnap.Option{
		certsnap.WithLogger(quietLogger()),
		certsnap.WithClock(&tickingClock{t: time.Unix(1693392000, 0)}),
	}, opts...)

	store, err := certsnap.New(config.DefaultPaths(work), opts...)
	require.NoError(t, err)
	return store, work
}

// writeFile writes content to path, creating parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// readFile returns path's content as a string.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// countBackups returns the number of finalized checkpoints on disk.
func countBackups(t *testing.T, store *certsnap.Store) int {
	t.Helper()
	entries, err := os.ReadDir(store.Paths().BackupDir)
	require.NoError(t, err)
	return len(entries)
}
