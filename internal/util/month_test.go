package util

import (
	"testing"
	"time"
)

func TestPinnedDate_NormalDay(t *testing.T) {
	d := PinnedDate(2024, time.March, 5)
	if d.Day() != 5 || d.Month() != time.March || d.Year() != 2024 {
		t.Errorf("Expected 2024-03-05, got %s", d.Format("2006-01-02"))
	}
}

func TestPinnedDate_DayBeyondMonthEnd(t *testing.T) {
	// Day 31 in February clamps to the last day
	d := PinnedDate(2023, time.February, 31)
	if d.Day() != 28 {
		t.Errorf("Expected Feb 28, got %s", d.Format("2006-01-02"))
	}

	// Leap year
	d = PinnedDate(2024, time.February, 31)
	if d.Day() != 29 {
		t.Errorf("Expected Feb 29, got %s", d.Format("2006-01-02"))
	}
}

func TestAddMonthsPinned_NoSpill(t *testing.T) {
	// Jan 31 + 1 month pinned to 31 stays in February
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	d := AddMonthsPinned(start, 1, 31)
	if d.Month() != time.February || d.Day() != 29 {
		t.Errorf("Expected 2024-02-29, got %s", d.Format("2006-01-02"))
	}
}

func TestAddMonthsPinned_YearWrap(t *testing.T) {
	start := time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC)
	d := AddMonthsPinned(start, 3, 5)
	if d.Year() != 2025 || d.Month() != time.February || d.Day() != 5 {
		t.Errorf("Expected 2025-02-05, got %s", d.Format("2006-01-02"))
	}
}

func TestAddMonthsPinned_ConsecutiveMonths(t *testing.T) {
	// Jan 10 generation with due day 5: Feb 5, Mar 5, Apr 5
	start := time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC)
	expected := []string{"2024-02-05", "2024-03-05", "2024-04-05"}
	for i, want := range expected {
		got := AddMonthsPinned(start, i+1, 5).Format("2006-01-02")
		if got != want {
			t.Errorf("month %d: expected %s, got %s", i+1, want, got)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 1, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 3 {
		t.Errorf("Expected 3 days, got %d", got)
	}
	if got := DaysBetween(to, from); got != -3 {
		t.Errorf("Expected -3 days, got %d", got)
	}
}

func TestSameDate(t *testing.T) {
	a := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	if !SameDate(a, b) {
		t.Error("Expected same date")
	}
	if SameDate(a, b.AddDate(0, 0, 1)) {
		t.Error("Expected different dates")
	}
}
