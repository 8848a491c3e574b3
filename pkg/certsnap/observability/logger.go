// Package observability provides structured logging, metrics, and
// tracing for the checkpoint store.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"strings"
	"time"
)

// LogBackupCreated logs a file being copied into a checkpoint, at debug
// level since staging is a high-frequency operation.
func LogBackupCreated(logger *slog.Logger, path string, slot int) {
	if logger == nil {
		return
	}
	logger.Debug("creating backup",
		slog.String("path", path),
		slog.Int("slot", slot),
	)
}

// LogFinalize logs a successful checkpoint promotion.
func LogFinalize(logger *slog.Logger, id, title string) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint finalized",
		slog.String("checkpoint_id", id),
		slog.String("title", title),
	)
}

// LogEmptyCheckpoint logs finalization of a checkpoint with no notes.
func LogEmptyCheckpoint(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("rollback checkpoint is empty (no changes made?)")
}

// LogFinalizeRetry logs a failed commit rename that will be retried
// with a fresh identifier.
func LogFinalizeRetry(logger *slog.Logger, id string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint rename failed, retrying",
		slog.String("checkpoint_id", id),
		slog.String("error", err.Error()),
	)
}

// LogRecoveryStart logs the beginning of a checkpoint recovery.
func LogRecoveryStart(logger *slog.Logger, recoveryID, dir string) {
	if logger == nil {
		return
	}
	logger.Info("recovering checkpoint",
		slog.String("recovery_id", recoveryID),
		slog.String("dir", dir),
	)
}

// LogRecoveryComplete logs a fully unwound checkpoint.
func LogRecoveryComplete(logger *slog.Logger, recoveryID, dir string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint recovered",
		slog.String("recovery_id", recoveryID),
		slog.String("dir", dir),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRecoveryFailed logs a failed recovery at error level. A failed
// recovery means the host configuration may be partially reverted, so
// this is never silent.
func LogRecoveryFailed(logger *slog.Logger, recoveryID, dir string, err error) {
	if logger == nil {
		return
	}
	logger.Error("incomplete or failed recovery",
		slog.String("recovery_id", recoveryID),
		slog.String("dir", dir),
		slog.String("error", err.Error()),
	)
}

// LogUndoCommandExit logs an undo command that launched but exited
// non-zero. Tolerated: file restoration still runs.
func LogUndoCommandExit(logger *slog.Logger, argv []string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("undo command exited with failure",
		slog.String("command", strings.Join(argv, " ")),
		slog.String("error", err.Error()),
	)
}

// LogUndoCommandLaunchFailed logs an undo command that could not be
// started at all.
func LogUndoCommandLaunchFailed(logger *slog.Logger, argv []string, err error) {
	if logger == nil {
		return
	}
	logger.Error("unable to run undo command",
		slog.String("command", strings.Join(argv, " ")),
		slog.String("error", err.Error()),
	)
}

// LogNewFileMissing logs a registered new file that no longer exists at
// recovery time, usually because the process died before creating it.
func LogNewFileMissing(logger *slog.Logger, path string) {
	if logger == nil {
		return
	}
	logger.Warn("registered new file not found for deletion; process probably shut down unexpectedly",
		slog.String("path", path),
	)
}

// LogNothingToRollBack logs a rollback request against an empty backup root.
func LogNothingToRollBack(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("no configuration checkpoints saved, rollback not available")
}

// LogRollbackShortfall logs a rollback request exceeding the number of
// finalized checkpoints.
func LogRollbackShortfall(logger *slog.Logger, requested, available int) {
	if logger == nil {
		return
	}
	logger.Warn("fewer checkpoints than requested",
		slog.Int("requested", requested),
		slog.Int("available", available),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
