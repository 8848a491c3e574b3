package certsnap

import (
	"log/slog"
	"os"
	"sort"

	"github.com/randalmurphal/certsnap/pkg/certsnap/config"
	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/journal"
	"github.com/randalmurphal/certsnap/pkg/certsnap/observability"
	"github.com/randalmurphal/certsnap/pkg/certsnap/recovery"
	"github.com/randalmurphal/certsnap/pkg/certsnap/timestamp"
)

// Store owns the three checkpoint directories and exposes the staging,
// finalize, listing, rollback, and recovery API.
//
// A Store assumes at most one process operates on its directories at a
// time; cross-process mutual exclusion is the caller's responsibility.
// All operations are synchronous and either complete or fail before
// returning.
type Store struct {
	paths   config.Paths
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	alloc   *timestamp.Allocator
	engine  *recovery.Engine
}

// Option configures a Store.
type Option func(*storeConfig)

// storeConfig collects constructor options before the allocator and
// recovery engine are built from them.
type storeConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	clock   timestamp.Clock
	runner  recovery.Runner
}

// WithLogger sets the store's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) { c.logger = logger }
}

// WithMetrics sets the store's metrics recorder. Defaults to no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *storeConfig) { c.metrics = m }
}

// WithClock overrides the clock used for checkpoint identifiers.
// Intended for tests.
func WithClock(clock timestamp.Clock) Option {
	return func(c *storeConfig) { c.clock = clock }
}

// WithRunner overrides how undo commands are executed during recovery.
// Intended for tests.
func WithRunner(r recovery.Runner) Option {
	return func(c *storeConfig) { c.runner = r }
}

// New creates a Store over the given directory layout, creating the
// backup root if needed. The in-progress and temporary directories are
// created lazily on first staging call.
func New(paths config.Paths, opts ...Option) (*Store, error) {
	if err := paths.Validate(); err != nil {
		return nil, err
	}

	cfg := storeConfig{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		clock:   timestamp.System,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(paths.BackupDir, journal.DirMode); err != nil {
		return nil, &snaperr.JournalError{Op: "persist", Path: paths.BackupDir, Err: err}
	}

	engineOpts := []recovery.Option{
		recovery.WithLogger(cfg.logger),
		recovery.WithMetrics(cfg.metrics),
	}
	if cfg.runner != nil {
		engineOpts = append(engineOpts, recovery.WithRunner(cfg.runner))
	}

	return &Store{
		paths:   paths,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		alloc: timestamp.NewAllocator(
			timestamp.WithClock(cfg.clock),
			timestamp.WithLogger(cfg.logger),
		),
		engine: recovery.New(engineOpts...),
	}, nil
}

// Paths returns the directory layout the store operates on.
func (s *Store) Paths() config.Paths {
	return s.paths
}

// checkpointDir returns the staging directory for the requested
// checkpoint class.
func (s *Store) checkpointDir(temporary bool) string {
	if temporary {
		return s.paths.TempDir
	}
	return s.paths.InProgressDir
}

// backupIDs lists the finalized checkpoint identifiers, sorted
// ascending by their numeric value. Every entry of the backup root must
// be a valid identifier; anything else is CorruptStoreError.
func (s *Store) backupIDs() ([]string, error) {
	entries, err := os.ReadDir(s.paths.BackupDir)
	if err != nil {
		return nil, &snaperr.JournalError{Op: "persist", Path: s.paths.BackupDir, Err: err}
	}

	ids := make([]string, 0, len(entries))
	values := make(map[string]float64, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		v, err := timestamp.Parse(name)
		if err != nil {
			return nil, &snaperr.CorruptStoreError{Dir: s.paths.BackupDir, Entry: name}
		}
		ids = append(ids, name)
		values[name] = v
	}

	sort.Slice(ids, func(i, j int) bool {
		return values[ids[i]] < values[ids[j]]
	})
	return ids, nil
}
