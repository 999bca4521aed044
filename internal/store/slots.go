package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/domain"
)

// SlotRepository persists bookable slots. The storage layer enforces
// uniqueness of (provider_id, start_time); BulkInsert treats per-row
// violations of that constraint as rows to skip, not as errors.
type SlotRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (domain.Slot, error)

	// ListByDayRange returns a provider's slots whose nominal day falls in
	// [from, to] inclusive, ordered by start time. With futureOnly set,
	// slots whose start is not after now are omitted.
	ListByDayRange(ctx context.Context, providerID uuid.UUID, from, to time.Time, futureOnly bool, now time.Time) ([]domain.Slot, error)

	// FurthestDay reports the latest nominal day any slot exists for. The
	// bool is false when the provider has no slots at all.
	FurthestDay(ctx context.Context, providerID uuid.UUID) (time.Time, bool, error)

	// ExistingStartTimes returns the subset of starts that already have a
	// slot for this provider.
	ExistingStartTimes(ctx context.Context, providerID uuid.UUID, starts []time.Time) ([]time.Time, error)

	// BulkInsert persists the given slots, silently dropping any that lose
	// a uniqueness race, and returns the number actually inserted.
	BulkInsert(ctx context.Context, slots []domain.Slot) (int, error)

	// SetBooked flips the booked flag conditionally: the update applies
	// only while the flag still holds !booked. A zero-row update means the
	// caller lost the race and gets ErrAlreadyBooked (when claiming) or
	// ErrConflict (when freeing).
	SetBooked(ctx context.Context, slotID uuid.UUID, booked bool) error

	// DeletePastUnbooked removes every slot with end_time before now and
	// is_booked false, returning the count. Booked slots are never touched.
	DeletePastUnbooked(ctx context.Context, now time.Time) (int, error)
}
