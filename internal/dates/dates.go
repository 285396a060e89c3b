// Package dates provides calendar-date arithmetic for the cleaning roster.
//
// The roster works in whole calendar days: assignments span an inclusive
// [start, end] date range and carry no time of day. Dates are kept in the
// ISO form YYYY-MM-DD, which makes lexicographic comparison equivalent to
// chronological comparison. Timezones enter only when a wall-clock instant
// is collapsed to a date, which always happens in the single organizational
// timezone configured for the process.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the wire and storage format for calendar dates.
const Layout = "2006-01-02"

// ErrInvalidDate indicates a string is not a valid YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("dates: invalid calendar date")

// Date is a calendar date in YYYY-MM-DD form. The zero value is the empty
// string and reports IsZero.
type Date string

// New builds a Date from its components.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// Parse validates s as a strict YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	// time.Parse accepts some shorthand forms; round-trip to reject them.
	if t.Format(Layout) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date(s), nil
}

// FromTime collapses an instant to the calendar date it falls on in loc.
func FromTime(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc).Format(Layout))
}

// String returns the YYYY-MM-DD form.
func (d Date) String() string { return string(d) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Valid reports whether the date parses as a strict calendar date.
func (d Date) Valid() bool {
	_, err := Parse(string(d))
	return err == nil
}

// Before reports whether d falls strictly before o.
func (d Date) Before(o Date) bool { return d < o }

// After reports whether d falls strictly after o.
func (d Date) After(o Date) bool { return d > o }

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	t := d.Time(time.UTC)
	if t.IsZero() {
		return d
	}
	return FromTime(t.AddDate(0, 0, n), time.UTC)
}

// DaysUntil returns the number of calendar days from d to o.
func (d Date) DaysUntil(o Date) int {
	from := d.Time(time.UTC)
	to := o.Time(time.UTC)
	if from.IsZero() || to.IsZero() {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}

// Span is an inclusive calendar-date range.
type Span struct {
	Start Date
	End   Date
}

// Valid reports whether both bounds parse and End is not before Start.
func (s Span) Valid() bool {
	return s.Start.Valid() && s.End.Valid() && !s.End.Before(s.Start)
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (s Span) Overlaps(o Span) bool {
	return !(s.End.Before(o.Start) || s.Start.After(o.End))
}

// Contains reports whether d falls inside the inclusive range.
func (s Span) Contains(d Date) bool {
	return !d.Before(s.Start) && !d.After(s.End)
}

// Shift returns the span moved by n calendar days.
func (s Span) Shift(n int) Span {
	return Span{Start: s.Start.AddDays(n), End: s.End.AddDays(n)}
}

// WeekOf returns the Monday-aligned 7-day window containing the instant t
// in loc. Sundays belong to the window opened by the preceding Monday.
func WeekOf(t time.Time, loc *time.Location) Span {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	// Monday is 1 and Sunday is 0 in time.Weekday.
	offset := (int(local.Weekday()) + 6) % 7
	monday := FromTime(local.AddDate(0, 0, -offset), loc)
	return Span{Start: monday, End: monday.AddDays(6)}
}
