package task

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time component.
//
// It deliberately does not use time.Time for storage: the inline tag grammar
// only checks digit shape (month 01-12, day 01-31), so a date like
// 2025-02-30 must survive a parse/render round trip verbatim instead of
// being normalized to March.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate returns the date for the given components.
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// ParseDate parses a strict YYYY-MM-DD string: 4-digit year, 2-digit month
// 01-12, 2-digit day 01-31. No further calendar validation is performed.
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	var y, m, d int
	for i, c := range []byte(s) {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
		}
		n := int(c - '0')
		switch {
		case i < 4:
			y = y*10 + n
		case i < 7:
			m = m*10 + n
		default:
			d = d*10 + n
		}
	}
	if m < 1 || m > 12 {
		return Date{}, fmt.Errorf("invalid date %q: month out of range", s)
	}
	if d < 1 || d > 31 {
		return Date{}, fmt.Errorf("invalid date %q: day out of range", s)
	}
	return Date{Year: y, Month: m, Day: d}, nil
}

// String renders the date in the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Equal reports whether two dates have identical components.
func (d Date) Equal(o Date) bool {
	return d == o
}

// Time converts the date to a time.Time at midnight UTC. Out-of-range days
// are normalized by the time package (Feb 30 becomes Mar 1 or 2).
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// AddMonthClamped returns the date one calendar month later, clamping the
// day of month to the target month's length (Jan 31 -> Feb 28/29).
func (d Date) AddMonthClamped() Date {
	y, m := d.Year, d.Month+1
	if m > 12 {
		m = 1
		y++
	}
	day := d.Day
	if last := daysInMonth(y, m); day > last {
		day = last
	}
	return Date{Year: y, Month: m, Day: day}
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
