package slots

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	slots     store.SlotRepository
	providers store.ProviderRepository
	log       *slog.Logger

	now func() time.Time
}

func NewService(slots store.SlotRepository, providers store.ProviderRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		slots:     slots,
		providers: providers,
		log:       log.With(slog.String("component", "slots")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateRange builds the candidate slot set for every workday in
// [rangeStart, rangeEnd], drops candidates that already exist for this
// provider, bulk-inserts the rest, and returns the number actually
// persisted. Candidates losing a concurrent-insert race are dropped by
// the storage layer, not reported as errors.
func (s *Service) GenerateRange(ctx context.Context, providerID uuid.UUID, rangeStart, rangeEnd time.Time) (int, error) {
	provider, err := s.providers.FindByID(ctx, providerID)
	if err != nil {
		return 0, err
	}

	off, err := domain.ParseOffset(provider.Timezone)
	if err != nil {
		return 0, validationError("provider timezone is missing or malformed: " + err.Error())
	}

	candidates := domain.CandidateSlots(providerID, off, rangeStart, rangeEnd, s.now())
	if len(candidates) == 0 {
		return 0, nil
	}

	starts := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		starts = append(starts, c.StartTime)
	}

	existing, err := s.slots.ExistingStartTimes(ctx, providerID, starts)
	if err != nil {
		return 0, err
	}

	taken := make(map[int64]struct{}, len(existing))
	for _, t := range existing {
		taken[t.UnixNano()] = struct{}{}
	}

	fresh := candidates[:0]
	for _, c := range candidates {
		if _, ok := taken[c.StartTime.UnixNano()]; ok {
			continue
		}
		fresh = append(fresh, c)
	}

	if len(fresh) == 0 {
		s.log.Debug("no new slots to generate", slog.String("provider_id", providerID.String()))
		return 0, nil
	}

	inserted, err := s.slots.BulkInsert(ctx, fresh)
	if err != nil {
		return 0, err
	}

	if inserted < len(fresh) {
		s.log.Warn(
			"some slots lost an insert race and were skipped",
			slog.String("provider_id", providerID.String()),
			slog.Int("inserted", inserted),
			slog.Int("skipped", len(fresh)-inserted),
		)
	} else {
		s.log.Info(
			"slots generated",
			slog.String("provider_id", providerID.String()),
			slog.Int("inserted", inserted),
		)
	}

	return inserted, nil
}

// GenerateInitial covers a new signup: today through the end of next
// month.
func (s *Service) GenerateInitial(ctx context.Context, providerID uuid.UUID) error {
	today := domain.DayStart(s.now())
	end := domain.MonthEnd(domain.AddMonths(today, 1))

	_, err := s.GenerateRange(ctx, providerID, today, end)
	return err
}

// ProviderOutcome records one provider's share of a monthly batch run.
type ProviderOutcome struct {
	ProviderID uuid.UUID
	Generated  int
	Skipped    bool
	Err        error
}

// BatchResult is the inspectable outcome of a monthly generation run.
type BatchResult struct {
	Outcomes []ProviderOutcome
}

func (b BatchResult) TotalGenerated() int {
	total := 0
	for _, o := range b.Outcomes {
		total += o.Generated
	}
	return total
}

func (b BatchResult) Failed() []ProviderOutcome {
	var out []ProviderOutcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// GenerateMonthly extends every provider's forward slot coverage through
// the end of the month after the current one. A provider whose furthest
// slot already reaches the target is skipped; one provider's failure is
// recorded and never aborts the rest of the batch.
func (s *Service) GenerateMonthly(ctx context.Context) (BatchResult, error) {
	providers, err := s.providers.List(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	today := domain.DayStart(s.now())
	targetEnd := domain.MonthEnd(domain.AddMonths(today, 1))

	var result BatchResult
	for _, p := range providers {
		outcome := s.extendProvider(ctx, p.ID, today, targetEnd)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Err != nil {
			s.log.Error(
				"monthly slot generation failed for provider",
				slog.Any("err", outcome.Err),
				slog.String("provider_id", p.ID.String()),
			)
		}
	}

	s.log.Info(
		"monthly slot generation completed",
		slog.Int("providers", len(providers)),
		slog.Int("generated", result.TotalGenerated()),
		slog.Int("failed", len(result.Failed())),
	)

	return result, nil
}

func (s *Service) extendProvider(ctx context.Context, providerID uuid.UUID, today, targetEnd time.Time) ProviderOutcome {
	outcome := ProviderOutcome{ProviderID: providerID}

	furthest, hasSlots, err := s.slots.FurthestDay(ctx, providerID)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	start := today
	if hasSlots {
		furthest = domain.DayStart(furthest)
		if !furthest.Before(targetEnd) {
			s.log.Debug(
				"provider already has sufficient lookahead",
				slog.String("provider_id", providerID.String()),
				slog.Time("furthest_day", furthest),
			)
			outcome.Skipped = true
			return outcome
		}
		start = furthest.AddDate(0, 0, 1)
	}

	outcome.Generated, outcome.Err = s.GenerateRange(ctx, providerID, start, targetEnd)
	return outcome
}

// CleanupPast deletes every expired never-booked slot. Booked slots are
// retained regardless of age; history lives on the appointment.
func (s *Service) CleanupPast(ctx context.Context) (int, error) {
	deleted, err := s.slots.DeletePastUnbooked(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.log.Info("past unbooked slots deleted", slog.Int("count", deleted))
	return deleted, nil
}

// DaySlots groups one UTC weekday's slots for the week view.
type DaySlots struct {
	Weekday time.Weekday
	Slots   []domain.Slot
}

// AvailableWeek lists a provider's future slots, booked and free alike,
// for the Monday-aligned week weekOffset weeks from now, grouped by the
// UTC weekday of each slot's start.
func (s *Service) AvailableWeek(ctx context.Context, sharableID string, weekOffset int) ([]DaySlots, error) {
	provider, err := s.providers.FindBySharableID(ctx, sharableID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	monday := domain.WeekStart(now).AddDate(0, 0, weekOffset*7)
	sunday := monday.AddDate(0, 0, 6)

	slots, err := s.slots.ListByDayRange(ctx, provider.ID, monday, sunday, true, now)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Weekday][]domain.Slot)
	for _, slot := range slots {
		wd := slot.StartTime.UTC().Weekday()
		byDay[wd] = append(byDay[wd], slot)
	}

	out := make([]DaySlots, 0, len(byDay))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if group, ok := byDay[wd]; ok {
			out = append(out, DaySlots{Weekday: wd, Slots: group})
		}
	}
	return out, nil
}
