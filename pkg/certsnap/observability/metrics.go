package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records checkpoint store metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStage records files staged into a checkpoint.
	RecordStage(ctx context.Context, temporary bool, files int)

	// RecordFinalize records a finalize attempt with its duration and
	// error status.
	RecordFinalize(ctx context.Context, duration time.Duration, err error)

	// RecordRecovery records a checkpoint recovery with its duration
	// and error status.
	RecordRecovery(ctx context.Context, duration time.Duration, err error)

	// RecordRollback records the number of checkpoints reverted by a
	// rollback request.
	RecordRollback(ctx context.Context, reverted int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stagedFiles     metric.Int64Counter
	finalized       metric.Int64Counter
	finalizeLatency metric.Float64Histogram
	recoveries      metric.Int64Counter
	recoveryErrors  metric.Int64Counter
	recoveryLatency metric.Float64Histogram
	rolledBack      metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("certsnap")

	stagedFiles, err := meter.Int64Counter("certsnap.checkpoint.staged_files",
		metric.WithDescription("Number of files staged into checkpoints"),
	)
	if err != nil {
		return nil, err
	}

	finalized, err := meter.Int64Counter("certsnap.checkpoint.finalized",
		metric.WithDescription("Number of checkpoint finalize attempts"),
	)
	if err != nil {
		return nil, err
	}

	finalizeLatency, err := meter.Float64Histogram("certsnap.finalize.latency_ms",
		metric.WithDescription("Checkpoint finalize latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	recoveries, err := meter.Int64Counter("certsnap.recovery.runs",
		metric.WithDescription("Number of checkpoint recoveries"),
	)
	if err != nil {
		return nil, err
	}

	recoveryErrors, err := meter.Int64Counter("certsnap.recovery.errors",
		metric.WithDescription("Number of failed checkpoint recoveries"),
	)
	if err != nil {
		return nil, err
	}

	recoveryLatency, err := meter.Float64Histogram("certsnap.recovery.latency_ms",
		metric.WithDescription("Checkpoint recovery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	rolledBack, err := meter.Int64Counter("certsnap.rollback.reverted",
		metric.WithDescription("Number of finalized checkpoints reverted by rollback"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stagedFiles:     stagedFiles,
		finalized:       finalized,
		finalizeLatency: finalizeLatency,
		recoveries:      recoveries,
		recoveryErrors:  recoveryErrors,
		recoveryLatency: recoveryLatency,
		rolledBack:      rolledBack,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStage records files staged into a checkpoint.
func (m *otelMetrics) RecordStage(ctx context.Context, temporary bool, files int) {
	m.stagedFiles.Add(ctx, int64(files), metric.WithAttributes(
		attribute.Bool("temporary", temporary),
	))
}

// RecordFinalize records a finalize attempt.
func (m *otelMetrics) RecordFinalize(ctx context.Context, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.finalized.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.finalizeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRecovery records a checkpoint recovery.
func (m *otelMetrics) RecordRecovery(ctx context.Context, duration time.Duration, err error) {
	m.recoveries.Add(ctx, 1)
	m.recoveryLatency.Record(ctx, float64(duration.Milliseconds()))
	if err != nil {
		m.recoveryErrors.Add(ctx, 1)
	}
}

// RecordRollback records reverted checkpoints.
func (m *otelMetrics) RecordRollback(ctx context.Context, reverted int) {
	m.rolledBack.Add(ctx, int64(reverted))
}
