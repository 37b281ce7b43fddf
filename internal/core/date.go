package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the canonical on-disk and wire representation.
const DateFormat = "2006-01-02"

// readDateFormat tolerates single-digit month and day on input.
const readDateFormat = "2006-1-2"

// Date is a calendar date with day granularity and no time zone.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date; out-of-range components roll over the
// way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date in local time.
func Today() Date {
	return NewDate(time.Now().Date())
}

// ParseDate parses an ISO date, accepting 2025-7-1 as well as 2025-07-01.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(readDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (want %s)", ErrInvalidDate, s, DateFormat)
	}
	return NewDate(t.Date()), nil
}

// MustParseDate is ParseDate for fixtures; panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

func (d Date) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

func (d Date) Year() int         { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int          { return d.d }

func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }
func (d Date) After(x Date) bool  { return d.time().After(x.time()) }
func (d Date) Equal(x Date) bool  { return d == x }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.y, d.m, d.d+n)
}

// AddMonths advances by whole calendar months, clamping an overflowing
// day-of-month to the last day of the target month: Jan 31 + 1 month is
// Feb 28 (Feb 29 in leap years).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.y, d.m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.d
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) String() string {
	return d.time().Format(DateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
