package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalToInstantRoundTrip(t *testing.T) {
	cases := []struct {
		local string
		zone  string
	}{
		{"2024-03-15T09:30", "America/New_York"},
		{"2024-07-01T00:00", "Europe/Berlin"},
		{"2024-12-31T23:59", "Asia/Kolkata"},
		{"2024-06-15T12:45", "Australia/Adelaide"},
		{"2024-11-03T01:30", "America/New_York"}, // ambiguous hour resolves to one instant
		{"2025-01-10T08:00", "UTC"},
	}

	for _, c := range cases {
		instant, exact, err := LocalToInstant(c.local, c.zone)
		require.NoError(t, err, c.local)
		assert.True(t, exact, c.local)
		assert.Equal(t, time.UTC, instant.Location())
		assert.Equal(t, c.local, FormatInZone(instant, c.zone, LocalLayout), "%s in %s", c.local, c.zone)
	}
}

func TestLocalToInstantOffset(t *testing.T) {
	instant, exact, err := LocalToInstant("2024-03-15T09:30", "America/New_York")
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC), instant)

	instant, exact, err = LocalToInstant("2024-01-15T09:30:15", "Asia/Tokyo")
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 30, 15, 0, time.UTC), instant)
}

func TestLocalToInstantDSTGapFallsBack(t *testing.T) {
	// 02:30 does not exist in New York on 2024-03-10
	instant, exact, err := LocalToInstant("2024-03-10T02:30", "America/New_York")
	require.NoError(t, err)
	assert.False(t, exact)
	assert.Equal(t, time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC), instant)
}

func TestLocalToInstantUnknownZoneFallsBack(t *testing.T) {
	instant, exact, err := LocalToInstant("2024-03-15T09:30", "Mars/Olympus_Mons")
	require.NoError(t, err)
	assert.False(t, exact)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), instant)
}

func TestLocalToInstantAlreadyAbsolute(t *testing.T) {
	instant, exact, err := LocalToInstant("2024-03-15T09:30:00+02:00", "America/New_York")
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, time.Date(2024, 3, 15, 7, 30, 0, 0, time.UTC), instant)
}

func TestLocalToInstantInvalid(t *testing.T) {
	_, _, err := LocalToInstant("next tuesday", "UTC")
	assert.Error(t, err)
}

func TestInstantToLocalFallsBackToUTC(t *testing.T) {
	instant := time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-15T13:30", FormatInZone(instant, "Nowhere/Special", LocalLayout))
	assert.Equal(t, "2024-03-15T09:30", FormatInZone(instant, "America/New_York", LocalLayout))
}

func TestIsDueAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, IsDueAt(now, now))
	assert.True(t, IsDueAt(now.Add(-time.Second), now))
	assert.False(t, IsDueAt(now.Add(time.Nanosecond), now))

	// same instant in another zone is still due
	ny, _ := time.LoadLocation("America/New_York")
	assert.True(t, IsDueAt(now.In(ny), now))

	// repeated checks at the same instant agree
	at := now.Add(-time.Minute)
	assert.Equal(t, IsDueAt(at, now), IsDueAt(at, now))

	assert.True(t, IsDue(time.Now().Add(-time.Minute)))
	assert.False(t, IsDue(time.Now().Add(time.Hour)))
}

func TestSoonestFuture(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, ok := SoonestFuture(nil, now)
	assert.False(t, ok)

	_, ok = SoonestFuture([]time.Time{now, now.Add(-time.Hour)}, now)
	assert.False(t, ok)

	soonest, ok := SoonestFuture([]time.Time{
		now.Add(-time.Hour),
		now.Add(30 * time.Minute),
		now.Add(2 * time.Minute),
		now.Add(10 * time.Minute),
	}, now)
	assert.True(t, ok)
	assert.Equal(t, now.Add(2*time.Minute), soonest)
}
