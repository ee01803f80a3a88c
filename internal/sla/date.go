package sla

import "time"

// DateLayout is the wire format for date-only fields.
const DateLayout = "2006-01-02"

// DateOnly strips the time-of-day and timezone, keeping the calendar date
// at UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b. Negative when b
// precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// ParseDate parses a date-only string.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(parsed), nil
}
