package domain

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Calendar maps wall-clock time to 1-based event day numbers in the event's timezone.
type Calendar struct {
	loc     *time.Location
	start   time.Time
	maxDays int
}

// NewCalendar builds a calendar starting at local midnight of startDate (YYYY-MM-DD) in tz.
func NewCalendar(tz, startDate string, maxDays int) (*Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	start, err := time.ParseInLocation("2006-01-02", startDate, loc)
	if err != nil {
		return nil, fmt.Errorf("parse event start %q: %w", startDate, err)
	}
	return &Calendar{loc: loc, start: start, maxDays: maxDays}, nil
}

// DayNumber returns the event day containing now; day 1 is the start date.
// Days before the start are zero or negative.
func (c *Calendar) DayNumber(now time.Time) int {
	y, m, d := now.In(c.loc).Date()
	sy, sm, sd := c.start.Date()
	// Count calendar days in UTC so DST shifts in the event zone cannot move the boundary.
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC))
	return int(days.Hours()/24) + 1
}

// Today returns the current day number or ErrOutsideEvent.
func (c *Calendar) Today(now time.Time) (int, error) {
	return c.Check(c.DayNumber(now))
}

// Check validates an explicit day number.
func (c *Calendar) Check(day int) (int, error) {
	if day < 1 || (c.maxDays > 0 && day > c.maxDays) {
		return 0, fmt.Errorf("day %d: %w", day, ErrOutsideEvent)
	}
	return day, nil
}
