package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// SlotDuration is fixed; a slot's end is always start + SlotDuration.
	SlotDuration = 30 * time.Minute

	// Local working window, same for every provider.
	LocalWorkdayStartHour = 9
	LocalWorkdayEndHour   = 17
)

type Slot struct {
	bun.BaseModel `bun:"table:slots"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID uuid.UUID `bun:"provider_id,notnull,type:uuid"`
	StartTime  time.Time `bun:"start_time,notnull"`
	EndTime    time.Time `bun:"end_time,notnull"`
	// Day is the UTC midnight of the nominal local workday the slot was
	// generated for. With a negative offset the start instant itself can
	// fall on the next UTC day; range queries and the sliding window
	// operate on Day, not on the shifted instant.
	Day       time.Time `bun:"day,notnull"`
	IsBooked  bool      `bun:"is_booked,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (s *Slot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// IsWorkday reports whether the nominal day is Monday through Friday.
func IsWorkday(day time.Time) bool {
	wd := day.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// CandidateSlots generates the unbooked slot set for every workday in
// [rangeStart, rangeEnd] (inclusive, by nominal UTC day), stepping through
// the provider's converted working window in SlotDuration increments.
// Slots whose start is not strictly after now are skipped, so a mid-day
// generation run never produces a slot in the past. The result is not
// deduplicated against persisted slots; callers handle that.
func CandidateSlots(providerID uuid.UUID, off Offset, rangeStart, rangeEnd, now time.Time) []Slot {
	wh := UTCWorkingHours(off)

	startTotal := wh.StartHour*60 + wh.StartMinute
	// The window may cross UTC midnight; express the end as minutes past
	// the window's own start day so the walk below stays monotonic.
	endTotal := wh.EndHour*60 + wh.EndMinute + (wh.EndDayAdjustment-wh.StartDayAdjustment)*minutesPerDay

	stepMinutes := int(SlotDuration / time.Minute)

	var out []Slot
	endDay := DayStart(rangeEnd)
	for day := DayStart(rangeStart); !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if !IsWorkday(day) {
			continue
		}

		windowBase := day.AddDate(0, 0, wh.StartDayAdjustment)
		for m := startTotal; m < endTotal; m += stepMinutes {
			start := windowBase.Add(time.Duration(m) * time.Minute)
			if !start.After(now) {
				continue
			}
			out = append(out, Slot{
				ProviderID: providerID,
				StartTime:  start,
				EndTime:    start.Add(SlotDuration),
				Day:        day,
				IsBooked:   false,
			})
		}
	}

	return out
}
