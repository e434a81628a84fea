package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 layout used for dates everywhere in Keel.
const DateFormat = "2006-01-02"

// Date represents a calendar date with day-level granularity.
// Balance and holding rows are keyed by Date, so it is comparable and
// safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns a normalized Date for the given year, month, and day.
// Out-of-range values are normalized the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateOf returns the Date containing the given time, in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.UTC().Date())
}

// Today returns the current date in UTC.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO-8601 date string ("2006-01-02").
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustDate parses an ISO-8601 date string and panics on failure.
// Intended for tests and fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the canonical time.Time for the date (midnight UTC).
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as ISO-8601.
func (d Date) String() string { return d.Time().Format(DateFormat) }

// IsZero returns true if the date is the zero value.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// Add returns a new Date with the given number of days added.
func (d Date) Add(days int) Date { return NewDate(d.Year, d.Month, d.Day+days) }

// Before reports whether d is before x.
func (d Date) Before(x Date) bool { return d.Time().Before(x.Time()) }

// After reports whether d is after x.
func (d Date) After(x Date) bool { return d.Time().After(x.Time()) }

// DaysUntil returns the number of whole days from d to x (negative if x is earlier).
func (d Date) DaysUntil(x Date) int {
	return int(x.Time().Sub(d.Time()) / (24 * time.Hour))
}

// MarshalJSON encodes the date as an ISO-8601 string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO-8601 date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of dates.
type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange returns the inclusive range [start, end].
func NewDateRange(start, end Date) DateRange {
	return DateRange{Start: start, End: end}
}

// Contains reports whether the range includes the given date.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of days in the range, inclusive of both ends.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

// Dates returns every date in the range in chronological order.
func (r DateRange) Dates() []Date {
	if r.End.Before(r.Start) {
		return nil
	}
	dates := make([]Date, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.Add(1) {
		dates = append(dates, d)
	}
	return dates
}
