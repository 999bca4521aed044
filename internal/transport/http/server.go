// Package http exposes the booking API as JSON over HTTP. Guest-facing
// routes are addressed by a provider's sharable id; owner routes require
// a session token.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/auth"
	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/service/bookings"
	"bookcal/backend/internal/service/providers"
	"bookcal/backend/internal/service/slots"
	"bookcal/backend/internal/store"
)

type SlotService interface {
	AvailableWeek(ctx context.Context, sharableID string, weekOffset int) ([]slots.DaySlots, error)
}

type BookingService interface {
	Book(ctx context.Context, in bookings.BookInput) (store.AppointmentWithSlot, error)
	Cancel(ctx context.Context, actingProviderID, appointmentID uuid.UUID) error
	Edit(ctx context.Context, actingProviderID, appointmentID uuid.UUID, in bookings.EditInput) (store.AppointmentWithSlot, error)
	List(ctx context.Context, sharableID string, direction store.TimeDirection, page, limit int) ([]store.AppointmentWithSlot, bookings.Pagination, error)
}

type ProviderService interface {
	Signup(ctx context.Context, in providers.SignupInput) (domain.Provider, error)
	Login(ctx context.Context, email, password string) (domain.Provider, error)
	Profile(ctx context.Context, providerID uuid.UUID) (domain.Provider, error)
	RotateSharableID(ctx context.Context, providerID uuid.UUID) (string, error)
}

type Server struct {
	slots     SlotService
	bookings  BookingService
	providers ProviderService
	tokens    *auth.TokenManager
	log       *slog.Logger
}

func NewServer(slotSvc SlotService, bookingSvc BookingService, providerSvc ProviderService, tokens *auth.TokenManager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		slots:     slotSvc,
		bookings:  bookingSvc,
		providers: providerSvc,
		tokens:    tokens,
		log:       log.With(slog.String("component", "http")),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.Handle("GET /api/users/me", s.tokens.Middleware(http.HandlerFunc(s.handleProfile)))
	mux.Handle("POST /api/users/me/sharable-id", s.tokens.Middleware(http.HandlerFunc(s.handleRotateSharableID)))

	mux.HandleFunc("GET /api/slots", s.handleAvailableWeek)
	mux.HandleFunc("GET /api/appointments", s.handleListAppointments)
	mux.HandleFunc("POST /api/appointments", s.handleBook)
	mux.Handle("PATCH /api/appointments/{id}", s.tokens.Middleware(http.HandlerFunc(s.handleEdit)))
	mux.Handle("DELETE /api/appointments/{id}", s.tokens.Middleware(http.HandlerFunc(s.handleCancel)))

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response failed", slog.Any("err", err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors onto HTTP statuses. Validation errors
// carry their message to the client; everything else gets a fixed phrase
// so internals never leak.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var slotVErr *slots.ValidationError
	var bookVErr *bookings.ValidationError
	var provVErr *providers.ValidationError

	switch {
	case errors.As(err, &slotVErr), errors.As(err, &bookVErr), errors.As(err, &provVErr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, store.ErrForbidden):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, store.ErrAlreadyBooked):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "slot is already booked"})
	case errors.Is(err, store.ErrConflict):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict"})
	default:
		s.log.Error("request failed", slog.Any("err", err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
