// Package hours decides whether a call arrives inside the configured
// business-hours window. Pure wall-clock math; malformed configuration is
// rejected at startup, never at call time.
package hours

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a minute-granularity time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("hours: %q is not HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("hours: %q has invalid hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("hours: %q has invalid minute", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// Window is a weekday business-hours window in a fixed timezone.
type Window struct {
	Start  Clock
	End    Clock
	TZName string
	Loc    *time.Location
}

// NewWindow validates and builds a Window from configured strings.
func NewWindow(startHHMM, endHHMM, tzName string) (Window, error) {
	start, err := ParseClock(startHHMM)
	if err != nil {
		return Window{}, err
	}
	end, err := ParseClock(endHHMM)
	if err != nil {
		return Window{}, err
	}
	if end.minutes() <= start.minutes() {
		return Window{}, fmt.Errorf("hours: end %s must be after start %s", end, start)
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Window{}, fmt.Errorf("hours: invalid timezone %q: %w", tzName, err)
	}
	return Window{Start: start, End: end, TZName: tzName, Loc: loc}, nil
}

// OpenAt reports whether now falls inside the window. Weekends are always
// closed; weekdays compare minute-of-day inclusively at both ends.
func (w Window) OpenAt(now time.Time) bool {
	local := now.In(w.Loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	cur := local.Hour()*60 + local.Minute()
	return w.Start.minutes() <= cur && cur <= w.End.minutes()
}

// ClosedMessage renders the after-hours voicemail prompt. The wording is
// stable; it is spoken verbatim and asserted in golden tests.
func (w Window) ClosedMessage() string {
	return fmt.Sprintf(
		"Thank you for calling. Our office is currently closed. "+
			"Our business hours are %s to %s, Monday through Friday, %s time. "+
			"Please leave a message after the tone and we'll return your call "+
			"on the next business day.",
		w.Start, w.End, w.TZName)
}
