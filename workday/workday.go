/*
Package workday counts chargeable working days in a date range.

PURPOSE:
  Answers the single question "how many days does this request cost?".
  A day is chargeable when it is neither a weekend (Saturday/Sunday)
  nor a company holiday. The count is computed once, at submission
  time, and frozen onto the request as its charge - later calendar
  edits never change what an existing request costs.

CALENDAR DEGRADATION:
  The holiday calendar is supplied by the caller. If holidays cannot
  be fetched, callers pass an empty Calendar and every non-weekend day
  is chargeable. A missing calendar must never block submission.

USAGE:
  cal := workday.NewCalendar(holidayDates)
  days, err := workday.Count(start, end, cal)

SEE ALSO:
  - leave/engine.go: freezes the count as the request charge
  - store/sqlite: persists the holiday table the calendar is built from
*/
package workday

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when the end date precedes the start date.
var ErrInvalidRange = errors.New("invalid range: end before start")

// =============================================================================
// CALENDAR - Set of holiday dates
// =============================================================================

// Calendar is a set of holiday dates, keyed by calendar day (time zone
// and clock time are ignored).
type Calendar map[string]struct{}

const dayFormat = "2006-01-02"

// NewCalendar builds a Calendar from a list of holiday dates.
func NewCalendar(dates []time.Time) Calendar {
	cal := make(Calendar, len(dates))
	for _, d := range dates {
		cal[d.Format(dayFormat)] = struct{}{}
	}
	return cal
}

// IsHoliday reports whether the given date is in the calendar.
func (c Calendar) IsHoliday(t time.Time) bool {
	_, ok := c[t.Format(dayFormat)]
	return ok
}

// =============================================================================
// WORKING-DAY COUNT
// =============================================================================

// Count returns the number of chargeable days in [start, end] inclusive:
// days that are neither Saturday/Sunday nor in cal. A nil Calendar means
// no holidays. Count is side-effect-free.
func Count(start, end time.Time, cal Calendar) (int, error) {
	start = truncate(start)
	end = truncate(end)
	if end.Before(start) {
		return 0, ErrInvalidRange
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) {
			continue
		}
		if cal != nil && cal.IsHoliday(d) {
			continue
		}
		days++
	}
	return days, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
