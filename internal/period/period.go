// Package period provides calendar arithmetic for monthly budget documents
// and the biweekly sub-periods inside them.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned when a year or month is out of range.
var ErrInvalidPeriod = errors.New("invalid period")

// fileExt is the extension of every budget document.
const fileExt = ".xlsx"

// Period identifies a budget document by calendar year and month.
type Period struct {
	Year  int
	Month time.Month
}

// New validates year and month and returns the matching Period.
func New(year, month int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// Of returns the Period containing t.
func Of(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String renders the period as "2024 - February".
func (p Period) String() string {
	return fmt.Sprintf("%d - %s", p.Year, p.Month.String())
}

// FileName returns the budget document name, e.g. "2024 - February.xlsx".
func (p Period) FileName() string {
	return p.String() + fileExt
}

// MonthAbbrev returns the three letter month name used in sheet names.
func (p Period) MonthAbbrev() string {
	return p.Month.String()[:3]
}

// Previous returns the immediately preceding calendar month.
func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Date returns the given day of this period as a UTC date.
func (p Period) Date(day int) time.Time {
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// FirstDay returns the first calendar day of the period.
func (p Period) FirstDay() time.Time {
	return p.Date(1)
}

// LastDay returns the last calendar day of the period.
func (p Period) LastDay() time.Time {
	return p.FirstDay().AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in the period's month.
func (p Period) DaysInMonth() int {
	return p.LastDay().Day()
}

// ValidDay reports whether day exists in the period's month.
func (p Period) ValidDay(day int) bool {
	return day >= 1 && day <= p.DaysInMonth()
}

// ParseFileName is the inverse of FileName. Directory components are ignored.
func ParseFileName(name string) (Period, error) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	base, ok := strings.CutSuffix(name, fileExt)
	if !ok {
		return Period{}, fmt.Errorf("%w: %q is not an %s file", ErrInvalidPeriod, name, fileExt)
	}

	t, err := time.Parse("2006 - January", base)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q: %v", ErrInvalidPeriod, name, err)
	}
	return Of(t), nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
