package observability

import (
	"context"
	"time"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordStage does nothing.
func (NoopMetrics) RecordStage(_ context.Context, _ bool, _ int) {}

// RecordFinalize does nothing.
func (NoopMetrics) RecordFinalize(_ context.Context, _ time.Duration, _ error) {}

// RecordRecovery does nothing.
func (NoopMetrics) RecordRecovery(_ context.Context, _ time.Duration, _ error) {}

// RecordRollback does nothing.
func (NoopMetrics) RecordRollback(_ context.Context, _ int) {}
