package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/domain"
)

type TimeDirection string

const (
	TimeDirectionPast   TimeDirection = "past"
	TimeDirectionFuture TimeDirection = "future"
)

// AppointmentWithSlot pairs an appointment with the slot it occupies,
// as produced by the list query's join.
type AppointmentWithSlot struct {
	Appointment domain.Appointment
	Slot        domain.Slot
}

type AppointmentRepository interface {
	Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Update(ctx context.Context, appt domain.Appointment) error

	// SoftDelete marks the appointment deleted; the row is never removed.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// ListByTimeDirection pages through a provider's live appointments by
	// their slot's start time relative to now: past sorts descending,
	// future ascending. Returns the page and the total matching count.
	ListByTimeDirection(ctx context.Context, providerID uuid.UUID, direction TimeDirection, now time.Time, page, limit int) ([]AppointmentWithSlot, int, error)
}
