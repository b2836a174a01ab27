package homework

import (
	"fmt"
	"time"

	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"
)

const (
	// DateLayout is the only accepted user-facing date format.
	DateLayout = "02.01.2006"
	// ISOLayout is the storage form; lexical order equals calendar order.
	ISOLayout = "2006-01-02"
)

// Date is a civil calendar day.
type Date struct {
	t time.Time
}

// ParseDate accepts exactly DD.MM.YYYY naming a real calendar day.
func ParseDate(s string) (Date, error) {
	t, ok := tghelpers.ParseStrictDate(s, DateLayout)
	if !ok {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// ParseISODate parses the YYYY-MM-DD storage form.
func ParseISODate(s string) (Date, error) {
	t, ok := tghelpers.ParseStrictDate(s, ISOLayout)
	if !ok {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for constants; it panics on bad input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as DD.MM.YYYY.
func (d Date) String() string { return d.t.Format(DateLayout) }

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string { return d.t.Format(ISOLayout) }

// Compare returns -1, 0 or +1 ordering d against o by calendar value.
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
