// Package notify delivers appointment lifecycle emails. Delivery is
// best effort; callers treat failures as log-worthy, never fatal.
package notify

import (
	"context"
	"time"
)

// AppointmentDetails carries everything a notification template needs.
type AppointmentDetails struct {
	AppointmentID string
	OwnerName     string
	OwnerEmail    string
	GuestName     string
	GuestEmail    string
	Guests        []string
	StartTime     time.Time
	EndTime       time.Time
	Reason        string
}

type Notifier interface {
	AppointmentBooked(ctx context.Context, d AppointmentDetails) error
	AppointmentCancelled(ctx context.Context, d AppointmentDetails) error
	AppointmentRescheduled(ctx context.Context, d AppointmentDetails, oldStart, oldEnd time.Time) error
}

// NoopNotifier satisfies Notifier without sending anything. It is the
// default when no SMTP host is configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (*NoopNotifier) AppointmentBooked(context.Context, AppointmentDetails) error { return nil }

func (*NoopNotifier) AppointmentCancelled(context.Context, AppointmentDetails) error { return nil }

func (*NoopNotifier) AppointmentRescheduled(context.Context, AppointmentDetails, time.Time, time.Time) error {
	return nil
}
