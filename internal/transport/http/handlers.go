package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"bookcal/backend/internal/auth"
	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/service/bookings"
	"bookcal/backend/internal/service/providers"
	"bookcal/backend/internal/store"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type providerResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	SharableID string `json:"sharable_id"`
	Timezone   string `json:"timezone"`
}

func toProviderResponse(p domain.Provider) providerResponse {
	return providerResponse{
		ID:         p.ID.String(),
		Email:      p.Email,
		Name:       p.Name,
		SharableID: p.SharableID,
		Timezone:   p.Timezone,
	}
}

type slotResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

func toSlotResponse(s domain.Slot) slotResponse {
	return slotResponse{
		ID:        s.ID.String(),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
	}
}

type appointmentResponse struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Phone  string       `json:"phone,omitempty"`
	Guests []string     `json:"guests,omitempty"`
	Reason string       `json:"reason,omitempty"`
	Status string       `json:"status"`
	Slot   slotResponse `json:"slot"`
}

func toAppointmentResponse(a store.AppointmentWithSlot) appointmentResponse {
	return appointmentResponse{
		ID:     a.Appointment.ID.String(),
		Name:   a.Appointment.Name,
		Email:  a.Appointment.Email,
		Phone:  a.Appointment.Phone,
		Guests: a.Appointment.Guests,
		Reason: a.Appointment.Reason,
		Status: string(a.Appointment.Status),
		Slot:   toSlotResponse(a.Slot),
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	provider, err := s.providers.Signup(r.Context(), providers.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Timezone: req.Timezone,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	token, err := s.tokens.Issue(provider.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.setSessionCookie(w, token, s.tokens.TTL())
	s.writeJSON(w, http.StatusCreated, toProviderResponse(provider))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	provider, err := s.providers.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	token, err := s.tokens.Issue(provider.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.setSessionCookie(w, token, s.tokens.TTL())
	s.writeJSON(w, http.StatusOK, toProviderResponse(provider))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	providerID, ok := auth.ProviderIDFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	provider, err := s.providers.Profile(r.Context(), providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProviderResponse(provider))
}

func (s *Server) handleRotateSharableID(w http.ResponseWriter, r *http.Request) {
	providerID, ok := auth.ProviderIDFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	sharable, err := s.providers.RotateSharableID(r.Context(), providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sharable_id": sharable})
}

type daySlotsResponse struct {
	Weekday string         `json:"weekday"`
	Slots   []slotResponse `json:"slots"`
}

func (s *Server) handleAvailableWeek(w http.ResponseWriter, r *http.Request) {
	sharableID := r.URL.Query().Get("sharable_id")
	if sharableID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sharable_id is required"})
		return
	}
	weekOffset := 0
	if raw := r.URL.Query().Get("week_offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "week_offset must be an integer"})
			return
		}
		weekOffset = n
	}

	days, err := s.slots.AvailableWeek(r.Context(), sharableID, weekOffset)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]daySlotsResponse, 0, len(days))
	for _, d := range days {
		slotOut := make([]slotResponse, 0, len(d.Slots))
		for _, slot := range d.Slots {
			slotOut = append(slotOut, toSlotResponse(slot))
		}
		out = append(out, daySlotsResponse{Weekday: d.Weekday.String(), Slots: slotOut})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"days": out})
}

type bookRequest struct {
	SharableID string   `json:"sharable_id"`
	SlotID     string   `json:"slot_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Guests     []string `json:"guests"`
	Reason     string   `json:"reason"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "slot_id must be a uuid"})
		return
	}

	appt, err := s.bookings.Book(r.Context(), bookings.BookInput{
		SharableID: req.SharableID,
		SlotID:     slotID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Guests:     req.Guests,
		Reason:     req.Reason,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sharableID := q.Get("sharable_id")
	if sharableID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "sharable_id is required"})
		return
	}
	direction := store.TimeDirection(q.Get("type"))
	if direction == "" {
		direction = store.TimeDirectionFuture
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, pagination, err := s.bookings.List(r.Context(), sharableID, direction, page, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]appointmentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toAppointmentResponse(item))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"appointments": out,
		"pagination": map[string]any{
			"page":          pagination.Page,
			"limit":         pagination.Limit,
			"total":         pagination.Total,
			"total_pages":   pagination.TotalPages,
			"has_next_page": pagination.HasNextPage,
			"has_prev_page": pagination.HasPrevPage,
		},
	})
}

type editRequest struct {
	NewSlotID *string   `json:"new_slot_id"`
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Guests    *[]string `json:"guests"`
	Reason    *string   `json:"reason"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	providerID, ok := auth.ProviderIDFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	apptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "appointment id must be a uuid"})
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	in := bookings.EditInput{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Guests: req.Guests,
		Reason: req.Reason,
	}
	if req.NewSlotID != nil {
		slotID, err := uuid.Parse(*req.NewSlotID)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "new_slot_id must be a uuid"})
			return
		}
		in.NewSlotID = &slotID
	}

	appt, err := s.bookings.Edit(r.Context(), providerID, apptID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	providerID, ok := auth.ProviderIDFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	apptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "appointment id must be a uuid"})
		return
	}

	if err := s.bookings.Cancel(r.Context(), providerID, apptID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
