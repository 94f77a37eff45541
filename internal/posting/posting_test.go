package posting

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestNewStampsCapturedAt(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	clock := fixedClock{now: time.Date(2024, 3, 1, 7, 0, 0, 0, loc)}

	p := New(clock, "Sales Analytics Lead", "acme", "Remote", "https://example.com/1", SourceGeneric)

	require.Equal(t, time.UTC, p.CapturedAt.Location())
	require.Equal(t, 12, p.CapturedAt.Hour())
	require.Nil(t, p.PostedAt)
	require.Zero(t, p.MatchScore)
}

func TestFormatTimeSortsChronologically(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(10 * time.Second),
		base.Add(1500 * time.Millisecond),
		base.Add(2 * time.Second),
		base.Add(900 * time.Microsecond),
	}
	formatted := make([]string, 0, len(times))
	for _, tm := range times {
		formatted = append(formatted, FormatTime(tm))
	}
	sort.Strings(formatted)

	require.Equal(t, []string{
		"2024-01-01T00:00:00.000900Z",
		"2024-01-01T00:00:01.500000Z",
		"2024-01-01T00:00:02.000000Z",
		"2024-01-01T00:00:10.000000Z",
	}, formatted)
}

func TestParseOptionalTime(t *testing.T) {
	t.Parallel()

	got, err := ParseOptionalTime("")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = ParseOptionalTime("2023-11-14T22:13:20.000000Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(1700000000), got.Unix())

	_, err = ParseOptionalTime("yesterday")
	require.Error(t, err)
}

func TestParseTimeAcceptsLegacyStamps(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 5, 1, 12, 30, 0, 250000000, time.UTC)
	for _, in := range []string{
		"2024-05-01T12:30:00.250000Z",
		"2024-05-01T12:30:00.25Z",
		"2024-05-01T14:30:00.25+02:00",
		"2024-05-01T12:30:00.250000",
		"2024-05-01 12:30:00.25",
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), "%s parsed as %v", in, got)
		require.Equal(t, time.UTC, got.Location())
	}

	got, err := ParseTime("2024-05-01T12:30:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), got)
}
