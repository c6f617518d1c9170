// Package tzinfo converts IANA timezone identifiers into UTC offsets and
// formatted local times. All functions are pure apart from reading the
// system clock and the zoneinfo database.
package tzinfo

import (
	"fmt"
	"time"
)

// Offset formats the current UTC offset of tz as "UTC+2", "UTC-7" or
// "UTC+5:30". The offset is evaluated now, so DST is reflected.
func Offset(tz string) (string, error) {
	return OffsetAt(tz, time.Now())
}

// OffsetAt formats the UTC offset of tz at the given instant.
func OffsetAt(tz string, at time.Time) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	_, seconds := at.In(loc).Zone()
	return formatOffset(seconds), nil
}

// LocalTime formats the wall-clock time in tz at the given instant.
func LocalTime(tz string, at time.Time) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return at.In(loc).Format("2006-01-02 15:04"), nil
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	if minutes == 0 {
		return fmt.Sprintf("UTC%s%d", sign, hours)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, hours, minutes)
}
