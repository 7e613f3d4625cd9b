package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTimeToUTCStandardTime(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	instant, err := LocalTimeToUTC(day, "18:30", "America/New_York")
	require.NoError(t, err)

	// EST is UTC-5 in January.
	assert.Equal(t, time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC), instant)
}

func TestLocalTimeToUTCDaylightTime(t *testing.T) {
	day := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	instant, err := LocalTimeToUTC(day, "18:30", "America/New_York")
	require.NoError(t, err)

	// EDT is UTC-4 in July.
	assert.Equal(t, time.Date(2025, 7, 15, 22, 30, 0, 0, time.UTC), instant)
}

func TestLocalTimeToUTCUsesOffsetOfThatDate(t *testing.T) {
	// 2025-03-09 is the US spring-forward date. An evening slot on that day
	// already carries the daylight offset even though the week started on
	// standard time.
	day := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	instant, err := LocalTimeToUTC(day, "18:30", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 22, 30, 0, 0, time.UTC), instant)

	// One week earlier the same wall-clock time is an hour later in UTC.
	weekBefore, err := LocalTimeToUTC(day.AddDate(0, 0, -7), "18:30", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 23, 30, 0, 0, time.UTC), weekBefore)
}

func TestLocalTimeToUTCIgnoresInputLocation(t *testing.T) {
	// The date is a calendar date: 23:00 UTC on the 15th is already the 16th
	// in Tokyo, but the resolved instant must stay on the 15th.
	day := time.Date(2025, 1, 15, 23, 0, 0, 0, time.UTC)

	instant, err := LocalTimeToUTC(day, "18:30", "Asia/Tokyo")
	require.NoError(t, err)

	// JST is UTC+9.
	assert.Equal(t, time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC), instant)
}

func TestLocalTimeToUTCRejectsBadInput(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := LocalTimeToUTC(day, "18:30", "Mars/Olympus_Mons")
	assert.Error(t, err)

	_, err = LocalTimeToUTC(day, "25:99", "America/New_York")
	assert.Error(t, err)
}
