package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics_ImplementsInterface(t *testing.T) {
	var _ MetricsRecorder = NoopMetrics{}
}

func TestNoopMetrics_RecordStage(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic with valid args", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStage(context.Background(), false, 3)
		})
	})

	t.Run("does not panic with nil context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStage(nil, true, 0)
		})
	})

	t.Run("does not panic with negative count", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStage(context.Background(), false, -1)
		})
	})
}

func TestNoopMetrics_RecordFinalize(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic on success", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordFinalize(context.Background(), 10*time.Millisecond, nil)
		})
	})

	t.Run("does not panic with error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordFinalize(context.Background(), 10*time.Millisecond, errors.New("test"))
		})
	})

	t.Run("does not panic with nil context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordFinalize(nil, 0, nil)
		})
	})
}

func TestNoopMetrics_RecordRecovery(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic on success", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRecovery(context.Background(), 50*time.Millisecond, nil)
		})
	})

	t.Run("does not panic with error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRecovery(context.Background(), 5*time.Millisecond, errors.New("test"))
		})
	})
}

func TestNoopMetrics_RecordRollback(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic with valid count", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRollback(context.Background(), 2)
		})
	})

	t.Run("does not panic with zero count", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordRollback(context.Background(), 0)
		})
	})
}

func TestNoopMetrics_NoSideEffects(t *testing.T) {
	// Verifies the noop recorder can stand in for the real one across a
	// full checkpoint lifecycle without any side effects.
	m := NoopMetrics{}
	ctx := context.Background()

	m.RecordStage(ctx, false, 3)
	m.RecordStage(ctx, true, 1)
	m.RecordFinalize(ctx, 20*time.Millisecond, nil)
	m.RecordRecovery(ctx, 15*time.Millisecond, nil)
	m.RecordRecovery(ctx, 5*time.Millisecond, errors.New("simulated"))
	m.RecordRollback(ctx, 1)
}
