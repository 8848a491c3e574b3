package certsnap

import (
	"context"
	"path/filepath"

	"github.com/randalmurphal/certsnap/pkg/certsnap/observability"
)

// RollbackResult reports what a rollback request actually did.
type RollbackResult struct {
	// Requested is the number of checkpoints asked for.
	Requested int
	// Available is the number of finalized checkpoints that existed.
	Available int
	// Reverted is the number actually recovered.
	Reverted int
}

// Shortfall reports whether fewer checkpoints existed than were requested.
func (r RollbackResult) Shortfall() bool {
	return r.Available < r.Requested
}

// Rollback recovers up to count finalized checkpoints, newest first.
//
// A count exceeding the number of finalized checkpoints is not an
// error: everything available is reverted and the result records the
// shortfall. An empty backup root is a no-op. A recovery failure stops
// the rollback with the already-reverted count in the result.
func (s *Store) Rollback(ctx context.Context, count int) (RollbackResult, error) {
	if count < 0 {
		return RollbackResult{}, ErrNegativeRollback
	}

	ids, err := s.backupIDs()
	if err != nil {
		return RollbackResult{}, err
	}

	result := RollbackResult{Requested: count, Available: len(ids)}
	switch {
	case len(ids) == 0:
		observability.LogNothingToRollBack(s.logger)
		return result, nil
	case len(ids) < count:
		observability.LogRollbackShortfall(s.logger, count, len(ids))
	}

	ctx, span := observability.StartRollbackSpan(ctx, count)
	defer func() { observability.EndSpanWithError(span, err) }()

	// Newest first: pop from the ascending-sorted tail.
	for i := len(ids) - 1; i >= 0 && result.Reverted < count; i-- {
		dir := filepath.Join(s.paths.BackupDir, ids[i])
		if err = s.engine.Recover(ctx, dir); err != nil {
			s.metrics.RecordRollback(ctx, result.Reverted)
			return result, err
		}
		result.Reverted++
	}

	s.metrics.RecordRollback(ctx, result.Reverted)
	return result, nil
}
