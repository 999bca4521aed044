package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A provider's working-hours timezone is a fixed signed offset from UTC.
// No IANA zone or DST handling is modeled; the offset is assumed valid
// year-round.
type Offset struct {
	raw     string
	minutes int
}

// ParseOffset parses a signed HH:MM offset string such as "+05:30" or
// "-08:00". The sign applies to both components, so "-00:30" is thirty
// minutes west of UTC.
func ParseOffset(s string) (Offset, error) {
	if len(s) != 6 {
		return Offset{}, fmt.Errorf("invalid timezone offset %q: want [+-]HH:MM", s)
	}

	var sign int
	switch s[0] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return Offset{}, fmt.Errorf("invalid timezone offset %q: missing sign", s)
	}

	parts := strings.SplitN(s[1:], ":", 2)
	if len(parts) != 2 {
		return Offset{}, fmt.Errorf("invalid timezone offset %q: want [+-]HH:MM", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 2 {
		return Offset{}, fmt.Errorf("invalid timezone offset %q: bad hours", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return Offset{}, fmt.Errorf("invalid timezone offset %q: bad minutes", s)
	}

	if hours < 0 || hours > 14 {
		return Offset{}, fmt.Errorf("invalid timezone offset %q: hours out of range", s)
	}
	if minutes < 0 || minutes > 59 {
		return Offset{}, fmt.Errorf("invalid timezone offset %q: minutes out of range", s)
	}

	return Offset{raw: s, minutes: sign * (hours*60 + minutes)}, nil
}

// MustParseOffset is for tests and constants known to be valid.
func MustParseOffset(s string) Offset {
	o, err := ParseOffset(s)
	if err != nil {
		panic(err)
	}
	return o
}

func (o Offset) String() string { return o.raw }

// TotalMinutes reports the signed offset from UTC in minutes.
func (o Offset) TotalMinutes() int { return o.minutes }

// Negated returns the offset with the opposite sign.
func (o Offset) Negated() Offset {
	sign := "+"
	m := -o.minutes
	if m < 0 {
		sign = "-"
	}
	abs := m
	if abs < 0 {
		abs = -abs
	}
	return Offset{
		raw:     fmt.Sprintf("%s%02d:%02d", sign, abs/60, abs%60),
		minutes: m,
	}
}

const minutesPerDay = 24 * 60

var errClockOutOfRange = errors.New("local clock time out of range")

// ConvertLocalToUTC maps a local wall-clock time to its UTC clock time.
// UTC = local - offset, computed in minutes since local midnight and
// normalized into [0, 1440). dayAdjustment reports whether the result
// landed on the previous (-1) or next (+1) calendar day.
func ConvertLocalToUTC(localHour, localMinute int, off Offset) (utcHour, utcMinute, dayAdjustment int, err error) {
	if localHour < 0 || localHour > 23 || localMinute < 0 || localMinute > 59 {
		return 0, 0, 0, errClockOutOfRange
	}

	total := localHour*60 + localMinute - off.TotalMinutes()

	switch {
	case total < 0:
		dayAdjustment = -1
		total += minutesPerDay
	case total >= minutesPerDay:
		dayAdjustment = 1
		total -= minutesPerDay
	}

	return total / 60, total % 60, dayAdjustment, nil
}

// WorkingHours is the provider's fixed local working window expressed as
// UTC clock times. Start and end may land on different UTC calendar days
// relative to the nominal local day, hence the separate day adjustments.
type WorkingHours struct {
	StartHour          int
	StartMinute        int
	EndHour            int
	EndMinute          int
	StartDayAdjustment int
	EndDayAdjustment   int
}

// UTCWorkingHours converts the fixed 09:00-17:00 local window into UTC
// clock times for the given offset.
func UTCWorkingHours(off Offset) WorkingHours {
	startH, startM, startAdj, _ := ConvertLocalToUTC(LocalWorkdayStartHour, 0, off)
	endH, endM, endAdj, _ := ConvertLocalToUTC(LocalWorkdayEndHour, 0, off)

	return WorkingHours{
		StartHour:          startH,
		StartMinute:        startM,
		EndHour:            endH,
		EndMinute:          endM,
		StartDayAdjustment: startAdj,
		EndDayAdjustment:   endAdj,
	}
}
