package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusPending AppointmentStatus = "pending"
	AppointmentStatusDone    AppointmentStatus = "done"
)

// MaxReasonLength bounds the guest-supplied reason text.
const MaxReasonLength = 500

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID         uuid.UUID         `bun:"id,pk,type:uuid"`
	ProviderID uuid.UUID         `bun:"provider_id,notnull,type:uuid"`
	SlotID     uuid.UUID         `bun:"slot_id,notnull,type:uuid"`
	Name       string            `bun:"name,notnull"`
	Email      string            `bun:"email,notnull"`
	Phone      string            `bun:"phone"`
	Guests     []string          `bun:"guests,array,notnull"`
	Reason     string            `bun:"reason"`
	Status     AppointmentStatus `bun:"status,notnull"`
	IsDeleted  bool              `bun:"is_deleted,notnull"`
	CreatedAt  time.Time         `bun:"created_at,notnull"`
	UpdatedAt  time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = AppointmentStatusPending
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
