package deadlines

import (
	"errors"
	"testing"
	"time"
)

func TestParseDueDate(t *testing.T) {
	now := time.Date(2025, time.April, 29, 17, 45, 0, 0, time.UTC)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"6-May", time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)},
		{" 06-may ", time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)},
		{"1-September", time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-05-06", time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)},
		{"2026-01-02T23:00:00-05:00", time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDueDate(tc.raw, now)
		if err != nil {
			t.Fatalf("ParseDueDate(%q): %v", tc.raw, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDueDate(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseDueDate_Malformed(t *testing.T) {
	now := time.Date(2025, time.April, 29, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"", "not-a-date", "31-Apr", "x-May", "6-Mayo", "2025/05/06", "2025-13-01", "tomorrow"} {
		if _, err := ParseDueDate(raw, now); !errors.Is(err, ErrMalformedDueDate) {
			t.Errorf("ParseDueDate(%q) expected ErrMalformedDueDate, got %v", raw, err)
		}
	}
}

func TestDaysRemaining(t *testing.T) {
	due := time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)
	morning := time.Date(2025, time.April, 29, 0, 1, 0, 0, time.UTC)
	night := time.Date(2025, time.April, 29, 23, 59, 0, 0, time.UTC)
	if DaysRemaining(due, morning) != 7 || DaysRemaining(due, night) != 7 {
		t.Fatalf("expected 7 days across the whole day")
	}
	if got := DaysRemaining(due, time.Date(2025, time.May, 8, 10, 0, 0, 0, time.UTC)); got != -2 {
		t.Fatalf("expected -2 for overdue, got %d", got)
	}
}

func TestDaysRemaining_UsesLocalCalendarDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Spans the March DST change; still whole calendar days.
	due := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.March, 7, 22, 0, 0, 0, loc)
	if got := DaysRemaining(due, now); got != 3 {
		t.Fatalf("expected 3 days, got %d", got)
	}
}

func TestEntityTracked(t *testing.T) {
	if (Entity{DueDate: "6-May", Status: StatusCompleted}).Tracked() {
		t.Fatalf("completed entity should not be tracked")
	}
	if (Entity{DueDate: "6-May", Status: StatusOnHold}).Tracked() {
		t.Fatalf("on-hold entity should not be tracked")
	}
	if (Entity{DueDate: "  ", Status: StatusInProgress}).Tracked() {
		t.Fatalf("blank due date should not be tracked")
	}
	if !(Entity{DueDate: "6-May", Status: StatusNotStarted}).Tracked() {
		t.Fatalf("not-started entity should be tracked")
	}
}
