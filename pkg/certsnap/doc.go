/*
Package certsnap saves configuration checkpoints and recovers from them.

# Overview

certsnap is the checkpoint and recovery engine a certificate-lifecycle
tool runs before and after mutating a host's security-sensitive
configuration. Configurator plugins stage file edits and shell-command
side effects through a Store so that, if a plugin fails partway, the
host can be mechanically restored to a prior known-good state, even
across process crashes or power loss.

A registered change lives in one of three states. A temporary change is
short-lived, made to solve a challenge, and is always reverted before
anything else. An in-progress change has been staged but not yet
committed. A finalized change has been promoted into a durable,
timestamped backup that Rollback can later revert.

# Basic Usage

Stage files before editing them, then finalize once the change is
verified good:

	store, err := certsnap.New(config.DefaultPaths("/var/lib/certtool"))
	if err != nil {
	    log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.RecoveryRoutine(ctx); err != nil {
	    log.Fatal(err) // host may be partially reverted, never ignore
	}

	files := []string{"/etc/svc/conf"}
	if err := store.StagePermanent(ctx, files, "enable tls\n"); err != nil {
	    log.Fatal(err)
	}
	// ... edit /etc/svc/conf ...
	if err := store.Finalize(ctx, "enable-tls"); err != nil {
	    log.Fatal(err)
	}

Undoing the change later:

	result, err := store.Rollback(ctx, 1)

# Crash Recovery

Call RecoveryRoutine once at the start of every invocation, before any
plugin runs. It reverts the temporary checkpoint first and the
in-progress checkpoint second; the ordering is load-bearing, since
temporary changes are always layered on top of in-progress ones.

# New Files and Undo Commands

Files the caller is about to create are registered with
RegisterNewFiles before creation, so recovery deletes them even if the
process dies mid-write. Shell-level undo actions are registered with
RegisterUndoCommand and run, oldest first, before any file is restored.
*/
package certsnap
