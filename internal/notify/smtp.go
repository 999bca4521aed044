package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPNotifier sends plain-text emails via unauthenticated SMTP
// (Mailpit-compatible).
type SMTPNotifier struct {
	addr string
	from string
}

func NewSMTPNotifier(host, port, from string) *SMTPNotifier {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@bookcal.local"
	}
	return &SMTPNotifier{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPNotifier) AppointmentBooked(ctx context.Context, d AppointmentDetails) error {
	subject := fmt.Sprintf("Appointment confirmed with %s", d.OwnerName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s is confirmed.\n\nWhen: %s\n%s\nSee you then.\n",
		d.GuestName, d.OwnerName, formatWindow(d.StartTime, d.EndTime), reasonLine(d.Reason),
	)
	return s.send(ctx, recipients(d), subject, body)
}

func (s *SMTPNotifier) AppointmentCancelled(ctx context.Context, d AppointmentDetails) error {
	subject := fmt.Sprintf("Appointment with %s cancelled", d.OwnerName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s on %s has been cancelled.\n",
		d.GuestName, d.OwnerName, formatWindow(d.StartTime, d.EndTime),
	)
	return s.send(ctx, recipients(d), subject, body)
}

func (s *SMTPNotifier) AppointmentRescheduled(ctx context.Context, d AppointmentDetails, oldStart, oldEnd time.Time) error {
	subject := fmt.Sprintf("Appointment with %s rescheduled", d.OwnerName)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s has moved.\n\nWas: %s\nNow: %s\n",
		d.GuestName, d.OwnerName, formatWindow(oldStart, oldEnd), formatWindow(d.StartTime, d.EndTime),
	)
	return s.send(ctx, recipients(d), subject, body)
}

func (s *SMTPNotifier) send(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, to, []byte(msg))
}

func recipients(d AppointmentDetails) []string {
	to := make([]string, 0, 1+len(d.Guests))
	to = append(to, d.GuestEmail)
	to = append(to, d.Guests...)
	return to
}

func reasonLine(reason string) string {
	if reason == "" {
		return ""
	}
	return fmt.Sprintf("Reason: %s\n", reason)
}

func formatWindow(start, end time.Time) string {
	return fmt.Sprintf(
		"%s to %s UTC",
		start.UTC().Format("Mon, 02 Jan 2006 15:04"),
		end.UTC().Format("15:04"),
	)
}

func buildMessage(from string, to []string, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		strings.Join(to, ", "),
		subject,
		body,
	)
}
