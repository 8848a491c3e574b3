// Package recovery unwinds one checkpoint directory completely, or
// fails loudly.
//
// Recovery is strictly ordered: undo commands run first (oldest first,
// best effort), then backed-up files are restored over their live
// paths, then registered new files are deleted, and only then is the
// checkpoint directory removed. A checkpoint whose restoration is
// unverified is never deleted.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/fsutil"
	"github.com/randalmurphal/certsnap/pkg/certsnap/journal"
	"github.com/randalmurphal/certsnap/pkg/certsnap/observability"
)

// Runner executes one undo command.
// Implementations report a non-zero exit as *ExitStatusError; any other
// error means the command could not be launched at all.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// ExitStatusError reports a command that launched but exited non-zero.
// Recovery tolerates these; launch failures it does not.
type ExitStatusError struct {
	// Code is the process exit code.
	Code int
}

// Error implements the error interface.
func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

// Run implements Runner.
func (execRunner) Run(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitStatusError{Code: exitErr.ExitCode()}
	}
	return err
}

// Engine replays a checkpoint backward.
type Engine struct {
	runner  Runner
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner overrides the undo-command runner. Intended for tests.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the engine's metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates a recovery engine that runs undo commands through os/exec
// and logs to the default logger.
func New(opts ...Option) *Engine {
	e := &Engine{
		runner:  execRunner{},
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recover unwinds the checkpoint at dir and removes it.
//
// Undo commands that exit non-zero are logged and tolerated; commands
// that cannot be launched fail the recovery, but file restoration and
// new-file deletion still run first, since restoring state matters more
// than shell-level undo actions. Any failure leaves dir in place for
// inspection.
func (e *Engine) Recover(ctx context.Context, dir string) error {
	recoveryID := "rec-" + uuid.New().String()[:8]
	start := time.Now()

	ctx, span := observability.StartRecoverySpan(ctx, recoveryID, dir)
	observability.LogRecoveryStart(e.logger, recoveryID, dir)

	err := e.recover(ctx, dir)

	observability.EndSpanWithError(span, err)
	duration := time.Since(start)
	e.metrics.RecordRecovery(ctx, duration, err)

	if err != nil {
		observability.LogRecoveryFailed(e.logger, recoveryID, dir, err)
		return err
	}
	observability.LogRecoveryComplete(e.logger, recoveryID, dir, float64(duration.Milliseconds()))
	return nil
}

// recover performs the four ordered recovery steps.
func (e *Engine) recover(ctx context.Context, dir string) error {
	launchFailures := e.runUndoCommands(ctx, dir)

	if err := e.restoreFiles(dir); err != nil {
		return err
	}

	if err := e.removeNewFiles(dir); err != nil {
		return err
	}

	if launchFailures > 0 {
		return &snaperr.RecoveryError{
			Dir: dir,
			Op:  "commands",
			Err: fmt.Errorf("%d undo command(s) could not be launched", launchFailures),
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return &snaperr.RecoveryError{Dir: dir, Op: "remove", Err: err}
	}
	return nil
}

// runUndoCommands runs every registered undo command, oldest first,
// and returns the number that could not be launched.
func (e *Engine) runUndoCommands(ctx context.Context, dir string) int {
	commands, err := journal.ReadCommands(dir)
	if err != nil {
		observability.LogUndoCommandLaunchFailed(e.logger, nil, err)
		return 1
	}

	launchFailures := 0
	for _, argv := range commands {
		if len(argv) == 0 {
			continue
		}
		err := e.runner.Run(ctx, argv)
		if err == nil {
			continue
		}
		var exitErr *ExitStatusError
		if errors.As(err, &exitErr) {
			observability.LogUndoCommandExit(e.logger, argv, err)
			continue
		}
		observability.LogUndoCommandLaunchFailed(e.logger, argv, err)
		launchFailures++
	}
	return launchFailures
}

// restoreFiles copies every backup slot back over its live path, in
// index order, preserving mode bits. This is the actual state
// restoration: any failure here aborts the recovery.
func (e *Engine) restoreFiles(dir string) error {
	paths, err := journal.ReadPaths(dir)
	if err != nil {
		return &snaperr.RecoveryError{Dir: dir, Op: "restore", Err: err}
	}
	for idx, path := range paths {
		if err := fsutil.Copy(journal.BackupSlot(dir, path, idx), path); err != nil {
			return &snaperr.RecoveryError{
				Dir: dir,
				Op:  "restore",
				Err: fmt.Errorf("restore %s: %w", path, err),
			}
		}
	}
	return nil
}

// removeNewFiles deletes every registered new file that still exists.
// Files are registered before they are created, so a missing file only
// means the process died early; that is logged, not failed.
func (e *Engine) removeNewFiles(dir string) error {
	paths, err := journal.ReadNewFiles(dir)
	if err != nil {
		return &snaperr.RecoveryError{Dir: dir, Op: "remove", Err: err}
	}
	for _, path := range paths {
		if !fsutil.Exists(path) {
			observability.LogNewFileMissing(e.logger, path)
			continue
		}
		if err := os.Remove(path); err != nil {
			return &snaperr.RecoveryError{
				Dir: dir,
				Op:  "remove",
				Err: fmt.Errorf("remove %s: %w", path, err),
			}
		}
	}
	return nil
}
