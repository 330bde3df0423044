package core

import (
	"fmt"
	"time"
)

// Date is a calendar date in the fixed YYYY-MM-DD lexical form. That form
// sorts lexically in chronological order, so range comparisons work directly
// on the string value.
type Date string

// NewDate builds a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

// Today returns the current calendar date.
func Today() Date {
	return Date(time.Now().Format("2006-01-02"))
}

func (d Date) Validate() error {
	if _, err := time.Parse("2006-01-02", string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Before reports whether d sorts before other. Valid dates compare
// chronologically.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

// InRange reports whether d falls within [start, end], inclusive on both ends.
func (d Date) InRange(start, end Date) bool {
	return string(d) >= string(start) && string(d) <= string(end)
}

// Display formats the date as DD/MM/YYYY for presentation.
func (d Date) Display() string {
	s := string(d)
	if len(s) != 10 {
		return s
	}
	return s[8:10] + "/" + s[5:7] + "/" + s[0:4]
}

// MonthRange returns the first and last day of the given month as an
// inclusive date range.
func MonthRange(year, month int) (Date, Date) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Date(start.Format("2006-01-02")), Date(end.Format("2006-01-02"))
}
