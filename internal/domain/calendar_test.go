package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCalendarDayNumber(t *testing.T) {
	cal, err := NewCalendar("America/Phoenix", "2025-08-29", 4)
	if err != nil {
		t.Fatalf("new calendar: %v", err)
	}

	cases := []struct {
		name string
		at   time.Time
		want int
	}{
		{"start midnight local", time.Date(2025, 8, 29, 7, 0, 0, 0, time.UTC), 1},
		{"late evening local on day one", time.Date(2025, 8, 30, 6, 59, 0, 0, time.UTC), 1},
		{"day two", time.Date(2025, 8, 30, 7, 0, 0, 0, time.UTC), 2},
		{"day before", time.Date(2025, 8, 28, 12, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := cal.DayNumber(tc.at); got != tc.want {
			t.Fatalf("%s: expected day %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestCalendarTodayOutsideEvent(t *testing.T) {
	cal, err := NewCalendar("America/Phoenix", "2025-08-29", 4)
	if err != nil {
		t.Fatalf("new calendar: %v", err)
	}
	if _, err := cal.Today(time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)); !errors.Is(err, ErrOutsideEvent) {
		t.Fatalf("expected outside event after max days, got %v", err)
	}
	if _, err := cal.Today(time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)); !errors.Is(err, ErrOutsideEvent) {
		t.Fatalf("expected outside event before start, got %v", err)
	}
	day, err := cal.Today(time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC))
	if err != nil || day != 4 {
		t.Fatalf("expected day 4, got %d (%v)", day, err)
	}
}

func TestPayloadTooLargeNamesLimit(t *testing.T) {
	err := error(&PayloadTooLargeError{Kind: ArtifactImage, Limit: 2 << 20, Size: 3 << 20})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge match")
	}
	if err.Error() != "file too large (max 2MB image)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
