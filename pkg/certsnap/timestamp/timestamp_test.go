package timestamp_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	snaperr "github.com/randalmurphal/certsnap/pkg/certsnap/errors"
	"github.com/randalmurphal/certsnap/pkg/certsnap/timestamp"
)

// frozenClock always reports the same instant.
type frozenClock struct {
	t time.Time
}

func (c frozenClock) Now() time.Time { return c.t }

func TestFormat_PlainDecimal(t *testing.T) {
	id := timestamp.Format(time.Unix(1693392000, 500000000))
	assert.Equal(t, "1693392000.5", id)
	assert.NotContains(t, id, "e")
	assert.NotContains(t, id, "E")
}

func TestParse_RoundTrip(t *testing.T) {
	now := time.Unix(1693392000, 123456789)
	value, err := timestamp.Parse(timestamp.Format(now))
	require.NoError(t, err)
	assert.InDelta(t, 1693392000.123456789, value, 1e-6)
}

func TestParse_RejectsNonIdentifiers(t *testing.T) {
	for _, bad := range []string{"", "IN_PROGRESS", "12a", "12.3.4"} {
		_, err := timestamp.Parse(bad)
		assert.Error(t, err, "entry %q", bad)
	}
}

func TestNext_EmptyStore(t *testing.T) {
	now := time.Unix(1693392000, 500000000)
	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{now}))

	id, err := alloc.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, timestamp.Format(now), id)
}

func TestNext_FrozenClockProducesIncreasingIdentifiers(t *testing.T) {
	now := time.Unix(1693392000, 0)
	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{now}))

	first, err := alloc.Next(nil)
	require.NoError(t, err)

	second, err := alloc.Next([]string{first})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	v1, err := timestamp.Parse(first)
	require.NoError(t, err)
	v2, err := timestamp.Parse(second)
	require.NoError(t, err)
	assert.Greater(t, v2, v1)
	assert.InDelta(t, v1+0.01, v2, 1e-6)
}

func TestNext_ClockRegressionTimeTravels(t *testing.T) {
	past := time.Unix(1693392000, 0)
	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{past}))

	future := timestamp.Format(time.Unix(1693392100, 0))
	id, err := alloc.Next([]string{future})
	require.NoError(t, err)

	v, err := timestamp.Parse(id)
	require.NoError(t, err)
	assert.InDelta(t, 1693392101.0, v, 1e-6)
}

func TestNext_SortsNumericallyNotLexically(t *testing.T) {
	// "9.5" > "10" lexically; numerically 10 is the maximum.
	past := time.Unix(5, 0)
	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{past}))

	id, err := alloc.Next([]string{"9.5", "10"})
	require.NoError(t, err)

	v, err := timestamp.Parse(id)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, v, 1e-9)
}

func TestNext_CorruptIdentifier(t *testing.T) {
	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{time.Unix(100, 0)}))

	_, err := alloc.Next([]string{"not-a-timestamp"})
	var cerr *snaperr.CorruptStoreError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "not-a-timestamp", cerr.Entry)
}

func TestNext_GivesUpAfterBoundedBumps(t *testing.T) {
	// An existing identifier so large that adding 1.0 or 0.01 cannot
	// produce a strictly greater float64.
	huge := strconv.FormatFloat(1e300, 'f', -1, 64)
	require.False(t, strings.ContainsAny(huge, "eE"))

	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{time.Unix(100, 0)}))

	_, err := alloc.Next([]string{huge})
	var aerr *snaperr.AllocationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 2, aerr.Attempts)
}

func TestLexicographicAndNumericOrderAgree(t *testing.T) {
	// Identifiers of the same integer width sort identically as
	// strings and as numbers.
	now := time.Unix(1693392000, 0)
	alloc := timestamp.NewAllocator(timestamp.WithClock(frozenClock{now}))

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := alloc.Next(ids)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i := 1; i < len(ids); i++ {
		assert.True(t, ids[i-1] < ids[i],
			"string order broken: %q then %q", ids[i-1], ids[i])

		prev, err := timestamp.Parse(ids[i-1])
		require.NoError(t, err)
		cur, err := timestamp.Parse(ids[i])
		require.NoError(t, err)
		assert.Less(t, prev, cur)
	}
}
