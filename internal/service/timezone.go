package service

import (
	"fmt"
	"time"
)

// LocalTimeToUTC resolves a wall-clock time ("HH:MM") on the calendar date of
// day in the named IANA timezone to the corresponding UTC instant. The date
// components of day are taken as given; its location is ignored. The offset
// is the one in effect on that date, not the one in effect now, so slots
// straddling a DST transition resolve correctly.
func LocalTimeToUTC(day time.Time, timeOfDay, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}

	clock, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", timeOfDay, err)
	}

	y, m, d := day.Date()
	instant := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)

	return instant.UTC(), nil
}
