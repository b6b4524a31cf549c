package compliance

import "time"

// Calendar boundary helpers. All computation is in UTC; period ends are
// inclusive through 23:59:59.999 of the last day.

// endOfDayOffset places a timestamp at 23:59:59.999 of its day.
const endOfDayOffset = 24*time.Hour - time.Millisecond

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(endOfDayOffset)
}

func StartOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns 23:59:59.999 on the last day of the month.
func EndOfMonth(year int, month time.Month) time.Time {
	return StartOfMonth(year, month).AddDate(0, 1, 0).Add(-time.Millisecond)
}

func StartOfYear(year int) time.Time {
	return StartOfMonth(year, time.January)
}

func EndOfYear(year int) time.Time {
	return EndOfMonth(year, time.December)
}

// quarterOf returns the 1-based calendar quarter containing the month.
func quarterOf(month time.Month) int {
	return (int(month)-1)/3 + 1
}

// quarterStartMonth returns the first month of a 1-based quarter.
func quarterStartMonth(quarter int) time.Month {
	return time.Month((quarter-1)*3 + 1)
}
