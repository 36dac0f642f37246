package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for storage and display.
const DateLayout = "2006-01-02"

// inputLayout also accepts months and days without a leading zero.
const inputLayout = "2006-1-2"

// DefaultCategory is used when an expense is recorded without a category.
const DefaultCategory = "General"

type (
	// Date is a calendar date without a time of day.
	Date struct {
		time.Time
	}

	// Expense is a single immutable ledger entry.
	Expense struct {
		ID       int64
		Date     Date
		Category string
		Note     string
		Amount   float64
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date in the local calendar.
func Today(now time.Time) Date {
	local := now.In(time.Local)
	return NewDate(local.Year(), int(local.Month()), local.Day())
}

// ParseDate parses a YYYY-MM-DD string. 2024-1-5 is read as 2024-01-05.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(inputLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// InMonth reports whether the date falls in the given calendar year and month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// MonthKey formats a year and month as YYYY-MM, the prefix of every date in it.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ValidateMonth checks a year/month pair used for reports.
func ValidateMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return &ValidationError{Field: "year", Value: strconv.Itoa(year), Err: ErrInvalidYear}
	}
	if month < 1 || month > 12 {
		return &ValidationError{Field: "month", Value: strconv.Itoa(month), Err: ErrInvalidMonth}
	}
	return nil
}

// Validate enforces the only invariants an expense has: a date and a finite amount.
// The sign of the amount and the length of the text fields are not constrained.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}
