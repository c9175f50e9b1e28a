package hours

import (
	"testing"
	"time"
)

func mustWindow(t *testing.T, start, end, tz string) Window {
	t.Helper()
	w, err := NewWindow(start, end, tz)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func TestOpenAt_WeekdayBoundaries(t *testing.T) {
	w := mustWindow(t, "09:00", "17:00", "America/New_York")
	loc := w.Loc

	// 2024-01-16 is a Tuesday.
	cases := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"one minute before open", time.Date(2024, 1, 16, 8, 59, 0, 0, loc), false},
		{"exactly at open", time.Date(2024, 1, 16, 9, 0, 0, 0, loc), true},
		{"exactly at close", time.Date(2024, 1, 16, 17, 0, 0, 0, loc), true},
		{"one minute after close", time.Date(2024, 1, 16, 17, 1, 0, 0, loc), false},
		{"saturday noon", time.Date(2024, 1, 20, 12, 0, 0, 0, loc), false},
		{"sunday noon", time.Date(2024, 1, 21, 12, 0, 0, 0, loc), false},
	}
	for _, tc := range cases {
		if got := w.OpenAt(tc.at); got != tc.open {
			t.Errorf("%s: OpenAt = %v, want %v", tc.name, got, tc.open)
		}
	}
}

func TestOpenAt_ConvertsToWindowTimezone(t *testing.T) {
	w := mustWindow(t, "09:00", "17:00", "America/New_York")
	// 15:00 UTC on a Tuesday is 10:00 in New York (EST): open.
	if !w.OpenAt(time.Date(2024, 1, 16, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected open at 10:00 local")
	}
	// 03:00 UTC is 22:00 the previous evening in New York: closed.
	if w.OpenAt(time.Date(2024, 1, 17, 3, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected closed at 22:00 local")
	}
}

func TestClosedMessage_Golden(t *testing.T) {
	w := mustWindow(t, "09:00", "17:00", "America/New_York")
	want := "Thank you for calling. Our office is currently closed. " +
		"Our business hours are 09:00 to 17:00, Monday through Friday, " +
		"America/New_York time. Please leave a message after the tone " +
		"and we'll return your call on the next business day."
	if got := w.ClosedMessage(); got != want {
		t.Fatalf("closed message drifted:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestNewWindow_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		start, end, tz string
	}{
		{"9am", "17:00", "America/New_York"},
		{"09:00", "25:00", "America/New_York"},
		{"09:00", "17:60", "America/New_York"},
		{"17:00", "09:00", "America/New_York"},
		{"09:00", "17:00", "Mars/Olympus"},
	}
	for _, tc := range cases {
		if _, err := NewWindow(tc.start, tc.end, tc.tz); err == nil {
			t.Errorf("expected error for %s-%s %s", tc.start, tc.end, tc.tz)
		}
	}
}
