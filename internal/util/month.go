package util

import "time"

// DateOnly truncates a time to midnight UTC, keeping only the calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PinnedDate returns the date for a target day in a given month,
// handling months with fewer days (e.g., day 31 in February returns Feb 28/29)
func PinnedDate(year int, month time.Month, targetDay int) time.Time {
	// Get last day of month by going to day 0 of next month
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	actualDay := targetDay
	if actualDay > lastDay {
		actualDay = lastDay
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}

// AddMonthsPinned moves forward by whole calendar months from t and pins the
// result to targetDay. Unlike time.AddDate it never spills into the following
// month (Jan 31 plus one month stays in February).
func AddMonthsPinned(t time.Time, months int, targetDay int) time.Time {
	totalMonths := int(t.Month()) - 1 + months // 0-indexed
	year := t.Year() + totalMonths/12
	month := time.Month(totalMonths%12 + 1)
	return PinnedDate(year, month, targetDay)
}

// DaysBetween returns the number of whole calendar days from one date to
// another. Negative when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}

// SameDate reports whether two times fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
