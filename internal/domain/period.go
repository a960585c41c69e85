package domain

import (
	"fmt"
	"time"
)

// Period identifies one allocation month
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// NewPeriod validates and builds a period
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PreviousPeriod returns the calendar month before now, rolling the year back in January.
func PreviousPeriod(now time.Time) Period {
	month := int(now.Month()) - 1
	year := now.Year()
	if month == 0 {
		month = 12
		year--
	}
	return Period{Month: month, Year: year}
}

// Validate checks month and year bounds
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("month %d out of range 1-12", p.Month)
	}
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("year %d out of range", p.Year)
	}
	return nil
}

// MonthName returns the English month name, e.g. "March"
func (p Period) MonthName() string {
	return time.Month(p.Month).String()
}

// Label renders the period as "Mar 2025"
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.MonthName()[:3], p.Year)
}

// Before reports whether p is earlier than other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
