package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/store"
)

type SlotRepo struct {
	db *bun.DB
}

func NewSlotRepo(db *bun.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

func (r *SlotRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	var slot domain.Slot
	err := r.db.NewSelect().
		Model(&slot).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Slot{}, store.ErrNotFound
		}
		return domain.Slot{}, err
	}
	return slot, nil
}

func (r *SlotRepo) ListByDayRange(ctx context.Context, providerID uuid.UUID, from, to time.Time, futureOnly bool, now time.Time) ([]domain.Slot, error) {
	var rows []domain.Slot
	q := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("day >= ?", from).
		Where("day <= ?", to).
		OrderExpr("start_time ASC")
	if futureOnly {
		q = q.Where("start_time > ?", now)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SlotRepo) FurthestDay(ctx context.Context, providerID uuid.UUID) (time.Time, bool, error) {
	var slot domain.Slot
	err := r.db.NewSelect().
		Model(&slot).
		Column("day").
		Where("provider_id = ?", providerID).
		OrderExpr("day DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return slot.Day.UTC(), true, nil
}

func (r *SlotRepo) ExistingStartTimes(ctx context.Context, providerID uuid.UUID, starts []time.Time) ([]time.Time, error) {
	if len(starts) == 0 {
		return nil, nil
	}

	var rows []domain.Slot
	err := r.db.NewSelect().
		Model(&rows).
		Column("start_time").
		Where("provider_id = ?", providerID).
		Where("start_time IN (?)", bun.In(starts)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(rows))
	for _, s := range rows {
		out = append(out, s.StartTime.UTC())
	}
	return out, nil
}

// BulkInsert leans on the (provider_id, start_time) unique constraint:
// rows losing a concurrent-generation race are dropped by DO NOTHING and
// the returned count reflects only what actually landed.
func (r *SlotRepo) BulkInsert(ctx context.Context, slots []domain.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	res, err := r.db.NewInsert().
		Model(&slots).
		On("CONFLICT (provider_id, start_time) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// SetBooked is a compare-and-set on the booked flag: the write applies
// only while the flag still holds the opposite value, so of two racing
// bookings exactly one observes the transition.
func (r *SlotRepo) SetBooked(ctx context.Context, slotID uuid.UUID, booked bool) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Slot)(nil)).
		Set("is_booked = ?", booked).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", slotID).
		Where("is_booked = ?", !booked).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if booked {
			return store.ErrAlreadyBooked
		}
		return store.ErrConflict
	}
	return nil
}

func (r *SlotRepo) DeletePastUnbooked(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.NewDelete().
		Model((*domain.Slot)(nil)).
		Where("end_time < ?", now).
		Where("is_booked = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
