package workday_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpoint/leavedesk/workday"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// COUNT TESTS
// =============================================================================

func TestCount_FullWeek_CountsOnlyWeekdays(t *testing.T) {
	// GIVEN: Monday through Sunday, no holidays
	// WHEN: Counting working days
	// THEN: 5 (Saturday and Sunday excluded)

	// 2025-03-03 is a Monday.
	days, err := workday.Count(date(2025, time.March, 3), date(2025, time.March, 9), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, days)
}

func TestCount_HolidayInsideRange_Excluded(t *testing.T) {
	// GIVEN: Monday through Friday with Wednesday a holiday
	// WHEN: Counting working days
	// THEN: 4

	cal := workday.NewCalendar([]time.Time{date(2025, time.March, 5)})
	days, err := workday.Count(date(2025, time.March, 3), date(2025, time.March, 7), cal)
	require.NoError(t, err)
	assert.Equal(t, 4, days)
}

func TestCount_HolidayOnWeekend_NotDoubleExcluded(t *testing.T) {
	// GIVEN: A holiday falling on a Saturday inside the range
	// WHEN: Counting Monday through Sunday
	// THEN: Still 5; the Saturday was never counted to begin with

	cal := workday.NewCalendar([]time.Time{date(2025, time.March, 8)})
	days, err := workday.Count(date(2025, time.March, 3), date(2025, time.March, 9), cal)
	require.NoError(t, err)
	assert.Equal(t, 5, days)
}

func TestCount_WeekendOnlyRange_Zero(t *testing.T) {
	// GIVEN: Saturday through Sunday
	// WHEN: Counting working days
	// THEN: 0, with no error

	days, err := workday.Count(date(2025, time.March, 8), date(2025, time.March, 9), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

func TestCount_SingleDay_InclusiveBounds(t *testing.T) {
	// GIVEN: Start equals end on a weekday
	// WHEN: Counting working days
	// THEN: 1

	days, err := workday.Count(date(2025, time.March, 4), date(2025, time.March, 4), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestCount_EndBeforeStart_Error(t *testing.T) {
	// GIVEN: End date before start date
	// WHEN: Counting working days
	// THEN: ErrInvalidRange

	_, err := workday.Count(date(2025, time.March, 7), date(2025, time.March, 3), nil)
	assert.ErrorIs(t, err, workday.ErrInvalidRange)
}

func TestCount_TimeOfDayIgnored(t *testing.T) {
	// GIVEN: Timestamps with clock components on the same weekday
	// WHEN: Counting working days
	// THEN: 1; counting works on calendar days

	start := time.Date(2025, time.March, 4, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 4, 1, 0, 0, 0, time.UTC)
	days, err := workday.Count(start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

// =============================================================================
// CALENDAR TESTS
// =============================================================================

func TestCalendar_IsHoliday_MatchesByDate(t *testing.T) {
	cal := workday.NewCalendar([]time.Time{
		time.Date(2025, time.December, 25, 10, 30, 0, 0, time.UTC),
	})

	assert.True(t, cal.IsHoliday(date(2025, time.December, 25)))
	assert.False(t, cal.IsHoliday(date(2025, time.December, 26)))
}
