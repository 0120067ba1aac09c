package core

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date form used on the wire and on disk.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, always in UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses "YYYY-MM-DD" text. Surrounding spaces are ignored.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &FormatError{Value: s, Err: err}
	}
	return Date{Time: t}, nil
}

// String returns the date in YYYY-MM-DD form, or "" when empty.
func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(DateLayout)
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Period restricts an aggregate or listing to a calendar window.
// Zero values mean "no restriction". Month requires Year.
type Period struct {
	Month int
	Year  int
}

// AllTime is the unrestricted period.
var AllTime = Period{}

// MonthOf returns the period covering d's calendar month.
func MonthOf(d Date) Period {
	return Period{Month: d.Month(), Year: d.Year()}
}

func (p Period) Validate() error {
	if p.Month != 0 && (p.Month < 1 || p.Month > 12) {
		return &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if p.Month != 0 && p.Year == 0 {
		return &ValidationError{Field: "year", Reason: "required when month is given"}
	}
	if p.Year < 0 || p.Year > 9999 {
		return &ValidationError{Field: "year", Reason: "must be between 1 and 9999"}
	}
	return nil
}

// IsAllTime reports whether the period applies no restriction.
func (p Period) IsAllTime() bool {
	return p.Month == 0 && p.Year == 0
}
