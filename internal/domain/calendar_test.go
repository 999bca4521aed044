package domain

import (
	"testing"
	"time"
)

func TestDayStart(t *testing.T) {
	in := time.Date(2026, 11, 15, 13, 45, 12, 99, time.UTC)
	want := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)
	if got := DayStart(in); !got.Equal(want) {
		t.Fatalf("DayStart = %v, want %v", got, want)
	}
}

func TestMonthEnd(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 11, 15, 10, 0, 0, 0, time.UTC), time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2028, 2, 3, 0, 0, 0, 0, time.UTC), time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)}, // leap year
		{time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := MonthEnd(tc.in); !got.Equal(tc.want) {
			t.Errorf("MonthEnd(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cases := []time.Time{
		monday,
		time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 1, 0, 0, 0, time.UTC), // Sunday
	}
	for _, in := range cases {
		if got := WeekStart(in); !got.Equal(monday) {
			t.Errorf("WeekStart(%v) = %v, want %v", in, got, monday)
		}
	}
}

func TestAddMonthsThenMonthEnd(t *testing.T) {
	// November run: end of the month after this one is Dec 31.
	today := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)
	want := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	if got := MonthEnd(AddMonths(today, 1)); !got.Equal(want) {
		t.Fatalf("target end = %v, want %v", got, want)
	}
}
