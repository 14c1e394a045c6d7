// Package schedule computes due dates and evaluates PM triggers. Everything
// here is pure: no clock reads, no I/O.
package schedule

import (
	"time"

	"cmms.GO/core/apperr"
)

type Unit string

const (
	Days   Unit = "DAYS"
	Weeks  Unit = "WEEKS"
	Months Unit = "MONTHS"
	Years  Unit = "YEARS"
)

func (u Unit) Valid() bool {
	switch u {
	case Days, Weeks, Months, Years:
		return true
	}
	return false
}

type Kind string

const (
	Fixed    Kind = "FIXED"
	Floating Kind = "FLOATING"
)

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddInterval adds n units to t. Months and years keep the day of month
// when it exists and clamp to the month end otherwise (Jan 31 + 1 month is
// Feb 28 or 29).
func AddInterval(t time.Time, n int, u Unit) (time.Time, error) {
	switch u {
	case Days:
		return t.AddDate(0, 0, n), nil
	case Weeks:
		return t.AddDate(0, 0, 7*n), nil
	case Months:
		return addMonths(t, n), nil
	case Years:
		return addMonths(t, 12*n), nil
	}
	return t, apperr.Validation("frequency_unit", "unknown unit %q", u)
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	last := time.Date(y, m+time.Month(months)+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(y, m+time.Month(months), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// Occurrence returns the k-th fixed occurrence after anchor. Stepping from
// the anchor instead of the previous due date keeps month-end schedules from
// drifting (Jan 31, Feb 29, Mar 31 rather than Mar 29).
func Occurrence(anchor time.Time, k, n int, u Unit) (time.Time, error) {
	return AddInterval(anchor, k*n, u)
}

// ComputeNextDue returns the next due date. FIXED steps from base, the
// previously scheduled due date. FLOATING steps from completion when given
// and from base otherwise.
func ComputeNextDue(base time.Time, n int, u Unit, kind Kind, completion *time.Time) (time.Time, error) {
	if n <= 0 {
		return base, apperr.Validation("frequency_value", "must be positive, got %d", n)
	}
	if !u.Valid() {
		return base, apperr.Validation("frequency_unit", "unknown unit %q", u)
	}
	switch kind {
	case Fixed:
		return AddInterval(base, n, u)
	case Floating:
		from := base
		if completion != nil {
			from = *completion
		}
		return AddInterval(from, n, u)
	}
	return base, apperr.Validation("schedule_type", "unknown schedule type %q", kind)
}

// MeterThreshold is the reading at which a meter trigger fires. An explicit
// next reading wins; otherwise last + interval, counting from zero when no
// baseline was ever recorded.
func MeterThreshold(last, next *float64, interval float64) *float64 {
	if next != nil {
		v := *next
		return &v
	}
	if interval <= 0 {
		return nil
	}
	base := 0.0
	if last != nil {
		base = *last
	}
	v := base + interval
	return &v
}

// Window restricts the days on which a PM may generate.
type Window struct {
	StartMonth       *int
	EndMonth         *int
	ExcludedWeekdays []int    // ISO, Monday = 1
	ExcludedDates    []string // YYYY-MM-DD
}

// Allows reports whether generation may happen on day.
func (w Window) Allows(day time.Time) bool {
	if w.StartMonth != nil && w.EndMonth != nil {
		m := int(day.Month())
		s, e := *w.StartMonth, *w.EndMonth
		if s <= e {
			if m < s || m > e {
				return false
			}
		} else if m < s && m > e {
			// wraps the new year, e.g. Nov..Feb
			return false
		}
	}
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7
	}
	for _, x := range w.ExcludedWeekdays {
		if x == wd {
			return false
		}
	}
	ds := day.Format("2006-01-02")
	for _, x := range w.ExcludedDates {
		if x == ds {
			return false
		}
	}
	return true
}

func (w Window) Validate() error {
	if (w.StartMonth == nil) != (w.EndMonth == nil) {
		return apperr.Validation("seasonal_start_month", "start and end month must be set together")
	}
	for _, m := range []*int{w.StartMonth, w.EndMonth} {
		if m != nil && (*m < 1 || *m > 12) {
			return apperr.Validation("seasonal_start_month", "month %d out of range", *m)
		}
	}
	for _, d := range w.ExcludedWeekdays {
		if d < 1 || d > 7 {
			return apperr.Validation("excluded_days", "weekday %d out of range 1..7", d)
		}
	}
	for _, d := range w.ExcludedDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return apperr.Validation("excluded_days", "bad date %q", d)
		}
	}
	return nil
}
