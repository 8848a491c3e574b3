package certsnap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/certsnap/pkg/certsnap"
	"github.com/randalmurphal/certsnap/pkg/certsnap/config"
)

func TestNew_CreatesBackupRoot(t *testing.T) {
	store, _ := newTestStore(t)
	assert.DirExists(t, store.Paths().BackupDir)
}

func TestNew_RejectsInvalidLayout(t *testing.T) {
	_, err := certsnap.New(config.Paths{BackupDir: "/work/backups"})
	assert.Error(t, err)
}

func TestNew_LazyWorkingDirectories(t *testing.T) {
	store, _ := newTestStore(t)

	// Staging directories appear only on first use.
	assert.NoDirExists(t, store.Paths().InProgressDir)
	assert.NoDirExists(t, store.Paths().TempDir)
}

// TestStageFinalizeRollback is the end-to-end scenario: stage a config
// file, mutate it, finalize, roll back, and assert the original
// content returns and the backup root is empty.
func TestStageFinalizeRollback(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t)

	conf := filepath.Join(work, "etc", "svc", "conf")
	writeFile(t, conf, "A")

	require.NoError(t, store.StagePermanent(ctx, []string{conf}, "enable-tls\n"))
	writeFile(t, conf, "B")
	require.NoError(t, store.Finalize(ctx, "enable-tls"))

	result, err := store.Rollback(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reverted)

	assert.Equal(t, "A", readFile(t, conf))
	assert.Equal(t, 0, countBackups(t, store))
}

func TestStagePermanent_RestoresByteForByte(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t)

	contents := map[string]string{
		filepath.Join(work, "one.conf"):   "listen 80;\n",
		filepath.Join(work, "two.conf"):   "listen 443 ssl;\nbinary\x00bytes",
		filepath.Join(work, "three.conf"): "",
	}
	var files []string
	for path, content := range contents {
		writeFile(t, path, content)
		files = append(files, path)
	}

	require.NoError(t, store.StagePermanent(ctx, files, "bulk change\n"))
	for _, path := range files {
		writeFile(t, path, "scrambled")
	}
	require.NoError(t, store.Finalize(ctx, "bulk"))

	_, err := store.Rollback(ctx, 1)
	require.NoError(t, err)

	for path, content := range contents {
		assert.Equal(t, content, readFile(t, path), "path %s", path)
	}
}

func TestStage_SamePathTwiceKeepsOneSlot(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t)

	conf := filepath.Join(work, "svc.conf")
	writeFile(t, conf, "first")

	require.NoError(t, store.StagePermanent(ctx, []string{conf}, "step one\n"))
	writeFile(t, conf, "second")
	require.NoError(t, store.StagePermanent(ctx, []string{conf}, "step two\n"))
	writeFile(t, conf, "third")

	require.NoError(t, store.Finalize(ctx, "steps"))
	_, err := store.Rollback(ctx, 1)
	require.NoError(t, err)

	// The earliest copy is the one restored.
	assert.Equal(t, "first", readFile(t, conf))
}

func TestFinalize_NoInProgressCheckpointIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Finalize(context.Background(), "nothing"))
	assert.Equal(t, 0, countBackups(t, store))
}

func TestFinalize_TitleAndPlaceholderNotes(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t)

	conf := filepath.Join(work, "svc.conf")
	writeFile(t, conf, "A")

	// Stage with no note at all.
	require.NoError(t, store.StagePermanent(ctx, []string{conf}, ""))
	require.NoError(t, store.Finalize(ctx, "silent-change"))

	infos, err := store.Changes(0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "-- silent-change --\nNo changes\n", infos[0].Notes)
}

func TestFinalize_PrependsTitleToNotes(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t)

	conf := filepath.Join(work, "svc.conf")
	writeFile(t, conf, "A")

	require.NoError(t, store.StagePermanent(ctx, []string{conf}, "added listener\n"))
	require.NoError(t, store.Finalize(ctx, "enable-tls"))

	infos, err := store.Changes(0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "-- enable-tls --\nadded listener\n", infos[0].Notes)
}

func TestFinalize_FrozenClockYieldsDistinctIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t, certsnap.WithClock(frozenClock{t: time.Unix(1693392000, 0)}))

	for i, name := range []string{"a.conf", "b.conf"} {
		conf := filepath.Join(work, name)
		writeFile(t, conf, "content")
		require.NoError(t, store.StagePermanent(ctx, []string{conf}, "change\n"))
		require.NoError(t, store.Finalize(ctx, "change"), "finalize %d", i)
	}

	infos, err := store.Changes(0)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.NotEqual(t, infos[0].ID, infos[1].ID)
	// Most recent first.
	assert.True(t, infos[0].Time.After(infos[1].Time) || infos[0].ID > infos[1].ID)
}

func TestFinalize_RetryAfterFailureKeepsCheckpoint(t *testing.T) {
	ctx := context.Background()
	store, work := newTestStore(t)

	conf := filepath.Join(work, "svc.conf")
	writeFile(t, conf, "A")
	require.NoError(t, store.StagePermanent(ctx, []string{conf}, "change\n"))

	// Swap the backup root for a regular file so the commit fails.
	require.NoError(t, os.RemoveAll(store.Paths().BackupDir))
	writeFile(t, store.Paths().BackupDir, "not a directory")

	err := store.Finalize(ctx, "doomed")
	require.Error(t, err)
	assert.DirExists(t, store.Paths().InProgressDir)

	// The in-progress checkpoint survives for a retry.
	require.NoError(t, os.Remove(store.Paths().BackupDir))
	require.NoError(t, os.MkdirAll(store.Paths().BackupDir, 0o755))
	require.NoError(t, store.Finalize(ctx, "retry"))
	assert.Equal(t, 1, countBackups(t, store))
}
