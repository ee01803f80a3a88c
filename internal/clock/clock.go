package clock

import "time"

// Clock supplies the current time anchored to the fixed operating timezone.
// Every date comparison in the SLA engine goes through this port so the
// timezone stays a configuration value.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type zoneClock struct {
	loc *time.Location
}

// NewZoneClock builds a Clock pinned to the named IANA timezone.
func NewZoneClock(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &zoneClock{loc: loc}, nil
}

// Now returns the current wall time in the operating timezone.
func (c *zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the current calendar date, normalized to UTC midnight so
// day arithmetic is immune to DST shifts.
func (c *zoneClock) Today() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
