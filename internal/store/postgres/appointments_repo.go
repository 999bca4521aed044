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

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	if m.Guests == nil {
		m.Guests = []string{}
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt domain.Appointment) error {
	m := appt
	if m.Guests == nil {
		m.Guests = []string{}
	}
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("slot_id", "name", "email", "phone", "guests", "reason", "status", "updated_at").
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return nil
}

// apptSlotRow is the join shape for the paginated listing.
type apptSlotRow struct {
	Appt domain.Appointment `bun:"embed:appt__"`
	Slot domain.Slot        `bun:"embed:slot__"`
}

func (r *AppointmentRepo) ListByTimeDirection(ctx context.Context, providerID uuid.UUID, direction store.TimeDirection, now time.Time, page, limit int) ([]store.AppointmentWithSlot, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	baseQuery := func() *bun.SelectQuery {
		q := r.db.NewSelect().
			TableExpr("appointments AS a").
			Join("JOIN slots AS s ON s.id = a.slot_id").
			Where("a.provider_id = ?", providerID).
			Where("a.is_deleted = ?", false)
		if direction == store.TimeDirectionPast {
			return q.Where("s.start_time < ?", now)
		}
		return q.Where("s.start_time >= ?", now)
	}

	total, err := baseQuery().Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	order := "s.start_time ASC"
	if direction == store.TimeDirectionPast {
		order = "s.start_time DESC"
	}

	var rows []apptSlotRow
	err = baseQuery().
		ColumnExpr("a.id AS appt__id, a.provider_id AS appt__provider_id, a.slot_id AS appt__slot_id").
		ColumnExpr("a.name AS appt__name, a.email AS appt__email, a.phone AS appt__phone").
		ColumnExpr("a.guests AS appt__guests, a.reason AS appt__reason, a.status AS appt__status").
		ColumnExpr("a.is_deleted AS appt__is_deleted, a.created_at AS appt__created_at, a.updated_at AS appt__updated_at").
		ColumnExpr("s.id AS slot__id, s.provider_id AS slot__provider_id, s.start_time AS slot__start_time").
		ColumnExpr("s.end_time AS slot__end_time, s.day AS slot__day, s.is_booked AS slot__is_booked").
		ColumnExpr("s.created_at AS slot__created_at, s.updated_at AS slot__updated_at").
		OrderExpr(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, err
	}

	out := make([]store.AppointmentWithSlot, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.AppointmentWithSlot{Appointment: row.Appt, Slot: row.Slot})
	}
	return out, total, nil
}
