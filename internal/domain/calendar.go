package domain

import "time"

// DayStart truncates an instant to its UTC midnight.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the UTC midnight of the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// AddMonths shifts an instant by whole calendar months.
func AddMonths(t time.Time, months int) time.Time {
	return t.UTC().AddDate(0, months, 0)
}

// WeekStart returns the UTC midnight of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	d := DayStart(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
