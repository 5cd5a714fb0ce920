// lockout/calendar.go
package lockout

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in the calendar's location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad minute", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) on(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Calendar describes the trading session: open/close wall-clock times, the
// daily reset boundary, weekend behavior and exchange holidays. It is
// supplied by configuration.
type Calendar struct {
	Location *time.Location
	Open     TimeOfDay // session open, e.g. 17:00 the prior evening
	Close    TimeOfDay // session close, e.g. 16:00
	Reset    TimeOfDay // daily reset boundary, usually == Open
	Holidays map[string]bool
	Weekends bool // true if Saturday/Sunday trade (crypto venues)
}

// IsHoliday reports whether the calendar date of now is a holiday.
func (c Calendar) IsHoliday(now time.Time) bool {
	return c.Holidays[now.In(c.Location).Format("2006-01-02")]
}

// InSession reports whether trading is allowed at now. Sessions may wrap
// midnight (open 17:00, close 16:00 next day).
func (c Calendar) InSession(now time.Time) bool {
	local := now.In(c.Location)
	if c.IsHoliday(now) {
		return false
	}
	if !c.Weekends {
		switch local.Weekday() {
		case time.Saturday:
			return false
		case time.Sunday:
			// Sunday evening open is the start of Monday's session.
			if c.wraps() && !local.Before(c.Open.on(local, c.Location)) {
				return true
			}
			return false
		}
	}

	open := c.Open.on(local, c.Location)
	close := c.Close.on(local, c.Location)
	if !c.wraps() {
		return !local.Before(open) && local.Before(close)
	}
	// Wrapped session: in session when after today's open or before
	// today's close.
	return !local.Before(open) || local.Before(close)
}

// NextSessionStart returns the next time trading opens at or after now.
func (c Calendar) NextSessionStart(now time.Time) time.Time {
	local := now.In(c.Location)
	start := c.Open.on(local, c.Location)
	for i := 0; i < 14; i++ {
		if start.After(local) && c.startsSession(start) {
			return start
		}
		start = c.Open.on(start.AddDate(0, 0, 1), c.Location)
	}
	return start
}

// startsSession reports whether a session opening at t actually trades.
func (c Calendar) startsSession(t time.Time) bool {
	if c.Holidays[t.Format("2006-01-02")] {
		return false
	}
	if c.Weekends {
		return true
	}
	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		// Friday evening open would run into Saturday; closed for
		// wrapped sessions.
		return !c.wraps()
	}
	return true
}

// SessionDate labels the trading session containing now. For wrapped
// sessions, times at or past the reset boundary belong to the next
// calendar day's session (futures convention).
func (c Calendar) SessionDate(now time.Time) string {
	local := now.In(c.Location)
	if c.wraps() && !local.Before(c.Reset.on(local, c.Location)) {
		local = local.AddDate(0, 0, 1)
	}
	return local.Format("2006-01-02")
}

func (c Calendar) wraps() bool {
	if c.Open.Hour != c.Close.Hour {
		return c.Open.Hour > c.Close.Hour
	}
	return c.Open.Minute >= c.Close.Minute
}
