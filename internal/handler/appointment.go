package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"teslabooking/internal/httputil"
	"teslabooking/internal/model"
	"teslabooking/internal/service"
	"teslabooking/internal/transport/http/middleware"
)

// Appointments is the booking store behind the /rest/v1 appointment routes.
type Appointments interface {
	Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	History(ctx context.Context, callerEmail string, isAdmin bool, email string) ([]model.Appointment, error)
	AdminList(ctx context.Context, status string, limit int) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error)
}

type AppointmentHandler struct {
	appointments Appointments
	admins       middleware.AdminChecker
	logger       *slog.Logger
}

func NewAppointmentHandler(appointments Appointments, admins middleware.AdminChecker) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		admins:       admins,
		logger:       slog.Default().With("component", "appointments"),
	}
}

// Create handles POST /rest/v1/appointments. Anyone may book.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	appt, err := h.appointments.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidAppointment) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("create appointment failed", "error", err)
		httputil.WriteInternalError(w, "Failed to create appointment")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, appt)
}

// History handles GET /rest/v1/appointments?email=. Non-admins only see
// their own bookings.
func (h *AppointmentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	isAdmin, err := h.admins.IsAdmin(r.Context(), userID)
	if err != nil {
		h.logger.Warn("admin lookup failed", "user_id", userID, "error", err)
		isAdmin = false
	}

	list, err := h.appointments.History(r.Context(), middleware.GetEmailFromContext(r.Context()), isAdmin, r.URL.Query().Get("email"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrForbiddenEmail):
			httputil.WriteForbidden(w, "You can only view your own appointments")
		case errors.Is(err, service.ErrInvalidInput):
			httputil.WriteBadRequest(w, err.Error())
		default:
			h.logger.Error("list history failed", "user_id", userID, "error", err)
			httputil.WriteInternalError(w, "Failed to load appointments")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, nonNil(list))
}

// AdminList handles GET /rest/v1/admin/appointments?status=&limit=
func (h *AppointmentHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	list, err := h.appointments.AdminList(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")), limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("admin list failed", "error", err)
		httputil.WriteInternalError(w, "Failed to load appointments")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, nonNil(list))
}

// UpdateStatus handles PATCH /rest/v1/admin/appointments/{id}
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteBadRequest(w, "Appointment id is required")
		return
	}

	var req model.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	appt, err := h.appointments.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrAppointmentNotFound):
			httputil.WriteNotFound(w, "Appointment not found")
		default:
			h.logger.Error("update status failed", "appointment_id", id, "error", err)
			httputil.WriteInternalError(w, "Failed to update appointment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, appt)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
