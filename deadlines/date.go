package deadlines

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedDueDate marks a due date matching neither accepted format.
var ErrMalformedDueDate = errors.New("malformed due date")

const isoDate = "2006-01-02"

var monthsByName = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// ParseDueDate normalizes a raw due date to a calendar date (midnight UTC).
//
// A value with exactly one '-' is the compact "D-Mon" form and takes the
// year of now. It is never rolled into the next year, so a compact date
// already past this year yields a negative days-remaining. Anything else
// must be "YYYY-MM-DD" (an RFC 3339 timestamp is cut to its date).
func ParseDueDate(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrMalformedDueDate)
	}
	if strings.Count(s, "-") == 1 {
		return parseCompact(s, now.Year())
	}
	if t, err := time.Parse(isoDate, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDueDate, raw)
}

func parseCompact(s string, year int) (time.Time, error) {
	dayPart, monPart, _ := strings.Cut(s, "-")
	day, err := strconv.Atoi(strings.TrimSpace(dayPart))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad day in %q", ErrMalformedDueDate, s)
	}
	month, ok := monthsByName[strings.ToLower(strings.TrimSpace(monPart))]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: bad month in %q", ErrMalformedDueDate, s)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31-Apr to 1-May; reject instead.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("%w: day out of range in %q", ErrMalformedDueDate, s)
	}
	return t, nil
}

// DaysRemaining counts calendar days from now's date to due's date, both
// taken at midnight. It is constant across one calendar day of now and is
// unaffected by DST shifts.
func DaysRemaining(due, now time.Time) int {
	return int(civilDay(due) - civilDay(now))
}

func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
