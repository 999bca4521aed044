package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/notify"
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
	appts     store.AppointmentRepository
	providers store.ProviderRepository
	notifier  notify.Notifier
	log       *slog.Logger

	now func() time.Time
}

func NewService(slots store.SlotRepository, appts store.AppointmentRepository, providers store.ProviderRepository, notifier notify.Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewNoopNotifier()
	}
	return &Service{
		slots:     slots,
		appts:     appts,
		providers: providers,
		notifier:  notifier,
		log:       log.With(slog.String("component", "bookings")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type BookInput struct {
	SharableID string
	SlotID     uuid.UUID
	Name       string
	Email      string
	Phone      string
	Guests     []string
	Reason     string
}

// Book claims a slot for a guest. The slot must belong to the provider
// addressed by the sharable id, be unbooked, and start in the future.
// The claim itself is a conditional update on the booked flag, so of two
// concurrent bookings exactly one succeeds and the other observes a
// "slot already booked" conflict.
func (s *Service) Book(ctx context.Context, in BookInput) (store.AppointmentWithSlot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.AppointmentWithSlot{}, validationError("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return store.AppointmentWithSlot{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > domain.MaxReasonLength {
		return store.AppointmentWithSlot{}, validationError("reason too long")
	}
	if strings.TrimSpace(in.SharableID) == "" {
		return store.AppointmentWithSlot{}, validationError("sharable_id is required")
	}
	if in.SlotID == uuid.Nil {
		return store.AppointmentWithSlot{}, validationError("slot_id is required")
	}

	provider, err := s.providers.FindBySharableID(ctx, in.SharableID)
	if err != nil {
		return store.AppointmentWithSlot{}, err
	}

	slot, err := s.slots.FindByID(ctx, in.SlotID)
	if err != nil {
		return store.AppointmentWithSlot{}, err
	}
	if slot.ProviderID != provider.ID {
		return store.AppointmentWithSlot{}, fmt.Errorf("slot does not belong to this provider: %w", store.ErrConflict)
	}
	if slot.IsBooked {
		return store.AppointmentWithSlot{}, store.ErrAlreadyBooked
	}
	if !slot.StartTime.After(s.now()) {
		return store.AppointmentWithSlot{}, fmt.Errorf("cannot book a past slot: %w", store.ErrConflict)
	}

	// Claim the slot before inserting the appointment; a lost race leaves
	// nothing to undo.
	if err := s.slots.SetBooked(ctx, slot.ID, true); err != nil {
		return store.AppointmentWithSlot{}, err
	}
	slot.IsBooked = true

	appt := domain.Appointment{
		ProviderID: provider.ID,
		SlotID:     slot.ID,
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(in.Phone),
		Guests:     normalizeGuests(in.Guests),
		Reason:     reason,
		Status:     domain.AppointmentStatusPending,
	}

	appt, err = s.appts.Insert(ctx, appt)
	if err != nil {
		if freeErr := s.slots.SetBooked(ctx, slot.ID, false); freeErr != nil {
			s.log.Error(
				"failed to release slot after appointment insert failure",
				slog.Any("err", freeErr),
				slog.String("slot_id", slot.ID.String()),
			)
		}
		return store.AppointmentWithSlot{}, err
	}

	s.log.Info(
		"appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("provider_id", provider.ID.String()),
		slog.Time("start_time", slot.StartTime),
	)

	s.dispatchNotification(ctx, func(ctx context.Context) error {
		return s.notifier.AppointmentBooked(ctx, notificationDetails(provider, appt, slot))
	})

	return store.AppointmentWithSlot{Appointment: appt, Slot: slot}, nil
}

// Cancel soft-deletes an appointment and frees its slot. Cancellation is
// terminal: a second cancel fails with a conflict.
func (s *Service) Cancel(ctx context.Context, actingProviderID, appointmentID uuid.UUID) error {
	appt, err := s.appts.FindByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.ProviderID != actingProviderID {
		return store.ErrForbidden
	}
	if appt.IsDeleted {
		return fmt.Errorf("appointment already cancelled: %w", store.ErrConflict)
	}

	slot, err := s.slots.FindByID(ctx, appt.SlotID)
	if err != nil {
		return err
	}
	if !slot.StartTime.After(s.now()) {
		return fmt.Errorf("cannot cancel a past appointment: %w", store.ErrConflict)
	}

	provider, err := s.providers.FindByID(ctx, actingProviderID)
	if err != nil {
		return err
	}

	if err := s.appts.SoftDelete(ctx, appt.ID); err != nil {
		return err
	}
	if err := s.slots.SetBooked(ctx, slot.ID, false); err != nil {
		s.log.Error(
			"appointment cancelled but slot release failed",
			slog.Any("err", err),
			slog.String("appointment_id", appt.ID.String()),
			slog.String("slot_id", slot.ID.String()),
		)
		return err
	}

	s.log.Info(
		"appointment cancelled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("provider_id", actingProviderID.String()),
	)

	s.dispatchNotification(ctx, func(ctx context.Context) error {
		return s.notifier.AppointmentCancelled(ctx, notificationDetails(provider, appt, slot))
	})

	return nil
}

// EditInput carries the optional fields of an edit; nil means "leave
// unchanged". At least one field must be set.
type EditInput struct {
	NewSlotID *uuid.UUID
	Name      *string
	Email     *string
	Phone     *string
	Guests    *[]string
	Reason    *string
}

func (in EditInput) empty() bool {
	return in.NewSlotID == nil && in.Name == nil && in.Email == nil &&
		in.Phone == nil && in.Guests == nil && in.Reason == nil
}

// Edit updates guest fields and/or moves the appointment to a different
// slot. On a slot change the old slot is freed before the new one is
// claimed; if the claim loses a race the old slot is re-claimed so the
// appointment keeps a booked slot.
func (s *Service) Edit(ctx context.Context, actingProviderID, appointmentID uuid.UUID, in EditInput) (store.AppointmentWithSlot, error) {
	if in.empty() {
		return store.AppointmentWithSlot{}, validationError("at least one field must be provided")
	}

	appt, err := s.appts.FindByID(ctx, appointmentID)
	if err != nil {
		return store.AppointmentWithSlot{}, err
	}
	if appt.ProviderID != actingProviderID {
		return store.AppointmentWithSlot{}, store.ErrForbidden
	}
	if appt.IsDeleted {
		return store.AppointmentWithSlot{}, fmt.Errorf("cannot edit a cancelled appointment: %w", store.ErrConflict)
	}

	oldSlot, err := s.slots.FindByID(ctx, appt.SlotID)
	if err != nil {
		return store.AppointmentWithSlot{}, err
	}
	if !oldSlot.StartTime.After(s.now()) {
		return store.AppointmentWithSlot{}, fmt.Errorf("cannot edit a past appointment: %w", store.ErrConflict)
	}

	var newSlot *domain.Slot
	if in.NewSlotID != nil {
		slot, err := s.slots.FindByID(ctx, *in.NewSlotID)
		if err != nil {
			return store.AppointmentWithSlot{}, err
		}
		if slot.ProviderID != actingProviderID {
			return store.AppointmentWithSlot{}, fmt.Errorf("new slot does not belong to this provider: %w", store.ErrConflict)
		}
		if slot.IsBooked {
			return store.AppointmentWithSlot{}, store.ErrAlreadyBooked
		}
		if !slot.StartTime.After(s.now()) {
			return store.AppointmentWithSlot{}, fmt.Errorf("cannot book a past slot: %w", store.ErrConflict)
		}
		if slot.ID == oldSlot.ID {
			return store.AppointmentWithSlot{}, fmt.Errorf("new slot must be different from current slot: %w", store.ErrConflict)
		}
		newSlot = &slot
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return store.AppointmentWithSlot{}, validationError("name must not be empty")
		}
		appt.Name = name
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return store.AppointmentWithSlot{}, err
		}
		appt.Email = email
	}
	if in.Phone != nil {
		appt.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Guests != nil {
		appt.Guests = normalizeGuests(*in.Guests)
	}
	if in.Reason != nil {
		reason := strings.TrimSpace(*in.Reason)
		if len(reason) > domain.MaxReasonLength {
			return store.AppointmentWithSlot{}, validationError("reason too long")
		}
		appt.Reason = reason
	}

	provider, err := s.providers.FindByID(ctx, actingProviderID)
	if err != nil {
		return store.AppointmentWithSlot{}, err
	}

	currentSlot := oldSlot
	if newSlot != nil {
		if err := s.slots.SetBooked(ctx, oldSlot.ID, false); err != nil {
			return store.AppointmentWithSlot{}, err
		}
		if err := s.slots.SetBooked(ctx, newSlot.ID, true); err != nil {
			if reclaimErr := s.slots.SetBooked(ctx, oldSlot.ID, true); reclaimErr != nil {
				s.log.Error(
					"failed to re-claim old slot after losing new slot race",
					slog.Any("err", reclaimErr),
					slog.String("slot_id", oldSlot.ID.String()),
				)
			}
			return store.AppointmentWithSlot{}, err
		}
		appt.SlotID = newSlot.ID
		newSlot.IsBooked = true
		currentSlot = *newSlot
	}

	if err := s.appts.Update(ctx, appt); err != nil {
		return store.AppointmentWithSlot{}, err
	}

	s.log.Info(
		"appointment updated",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("provider_id", actingProviderID.String()),
		slog.Bool("slot_changed", newSlot != nil),
	)

	if newSlot != nil {
		details := notificationDetails(provider, appt, currentSlot)
		oldStart := oldSlot.StartTime
		oldEnd := oldSlot.EndTime
		s.dispatchNotification(ctx, func(ctx context.Context) error {
			return s.notifier.AppointmentRescheduled(ctx, details, oldStart, oldEnd)
		})
	}

	return store.AppointmentWithSlot{Appointment: appt, Slot: currentSlot}, nil
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Pagination is the metadata block returned with every appointment page.
type Pagination struct {
	Page        int
	Limit       int
	Total       int
	TotalPages  int
	HasNextPage bool
	HasPrevPage bool
}

// List pages through the provider's live appointments in the given time
// direction. Page and limit are clamped to sane bounds rather than
// rejected.
func (s *Service) List(ctx context.Context, sharableID string, direction store.TimeDirection, page, limit int) ([]store.AppointmentWithSlot, Pagination, error) {
	if direction != store.TimeDirectionPast && direction != store.TimeDirectionFuture {
		return nil, Pagination{}, validationError("type must be past or future")
	}

	provider, err := s.providers.FindBySharableID(ctx, sharableID)
	if err != nil {
		return nil, Pagination{}, err
	}

	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, total, err := s.appts.ListByTimeDirection(ctx, provider.ID, direction, s.now(), page, limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := (total + limit - 1) / limit
	return items, Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, nil
}

// dispatchNotification runs a best-effort side effect after the state
// change has committed. Failures are logged and swallowed; they never
// unwind the booking transition that triggered them.
func (s *Service) dispatchNotification(ctx context.Context, send func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := send(ctx); err != nil {
			s.log.Warn("notification send failed", slog.Any("err", err))
		}
	}()
}

func notificationDetails(provider domain.Provider, appt domain.Appointment, slot domain.Slot) notify.AppointmentDetails {
	return notify.AppointmentDetails{
		AppointmentID: appt.ID.String(),
		OwnerName:     provider.Name,
		OwnerEmail:    provider.Email,
		GuestName:     appt.Name,
		GuestEmail:    appt.Email,
		Guests:        appt.Guests,
		StartTime:     slot.StartTime,
		EndTime:       slot.EndTime,
		Reason:        appt.Reason,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validationError("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", validationError("email is invalid")
	}
	return email, nil
}

func normalizeGuests(guests []string) []string {
	out := make([]string, 0, len(guests))
	for _, g := range guests {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		out = append(out, g)
	}
	return out
}
