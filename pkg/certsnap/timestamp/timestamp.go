// Package timestamp allocates finalized-checkpoint identifiers: decimal
// encodings of Unix time chosen so that, read back and sorted, existing
// identifiers form a strictly increasing sequence whether compared as
// strings of the same era or as real numbers.
package timestamp

import (
	"log/slog"
	"strconv"
	"time"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
)

// Clock abstracts time.Now so collision handling can be tested against
// a frozen or regressing clock.
type Clock interface {
	Now() time.Time
}

// systemClock reads the real time.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the real-time clock used outside of tests.
var System Clock = systemClock{}

// maxBumps bounds collision handling. Allocation is not retryable
// within the same call once the bumps are exhausted.
const maxBumps = 2

// Format encodes a time as a checkpoint identifier: fractional Unix
// seconds in plain decimal notation, never exponential, so that
// lexicographic and numeric ordering agree for same-era identifiers.
func Format(t time.Time) string {
	sec := float64(t.UnixNano()) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

// Parse decodes a checkpoint identifier back to fractional Unix
// seconds. An error means the identifier did not come from Format.
func Parse(id string) (float64, error) {
	return strconv.ParseFloat(id, 64)
}

// Time converts a parsed identifier value to a time.Time.
func Time(value float64) time.Time {
	return time.Unix(0, int64(value*float64(time.Second)))
}

// Allocator produces the next finalized-checkpoint identifier given the
// identifiers already present in the backup root.
type Allocator struct {
	clock  Clock
	logger *slog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock overrides the clock. Intended for tests.
func WithClock(c Clock) Option {
	return func(a *Allocator) { a.clock = c }
}

// WithLogger sets the logger used for time-travel warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) { a.logger = logger }
}

// NewAllocator creates an allocator backed by the system clock and the
// default logger.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		clock:  System,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next returns an identifier strictly greater than every entry of
// existing. The current time is the candidate; if the clock moved
// backward (or an existing checkpoint already sits at or past it) the
// candidate is bumped to the maximum plus one second, and a remaining
// same-instant tie is bumped by a further 0.01. If the candidate still
// does not exceed every existing identifier after the bounded bumps,
// allocation fails with AllocationError.
func (a *Allocator) Next(existing []string) (string, error) {
	values := make([]float64, 0, len(existing))
	max := 0.0
	for _, id := range existing {
		v, err := Parse(id)
		if err != nil {
			return "", &snaperr.CorruptStoreError{Entry: id}
		}
		values = append(values, v)
		if v > max {
			max = v
		}
	}

	candidate := Format(a.clock.Now())
	value, _ := Parse(candidate)

	for bump := 0; bump < maxBumps && !greaterThanAll(value, values); bump++ {
		if value < max {
			// Clock regression, or a checkpoint from the future.
			bumped := max + 1.0
			a.logger.Warn("current timestamp does not exceed newest checkpoint; clock probably jumped, time travelling",
				slog.String("candidate", candidate),
				slog.String("bumped", strconv.FormatFloat(bumped, 'f', -1, 64)),
			)
			value = bumped
		} else {
			// Two checkpoints requested inside the same clock tick.
			a.logger.Debug("timestamp collision, incrementing",
				slog.String("candidate", candidate),
			)
			value = max + 0.01
		}
		candidate = strconv.FormatFloat(value, 'f', -1, 64)
	}

	if !greaterThanAll(value, values) {
		return "", &snaperr.AllocationError{Candidate: candidate, Attempts: maxBumps}
	}
	return candidate, nil
}

// greaterThanAll reports whether v strictly exceeds every element of values.
func greaterThanAll(v float64, values []float64) bool {
	for _, other := range values {
		if v <= other {
			return false
		}
	}
	return true
}
