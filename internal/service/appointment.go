package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"teslabooking/internal/metrics"
	"teslabooking/internal/model"
	"teslabooking/internal/queue"
	"teslabooking/internal/repository"
	"teslabooking/internal/validation"
)

const (
	defaultAdminListLimit = 200
	maxAdminListLimit     = 1000
)

// AppointmentService stores bookings and announces them on the booking stream.
type AppointmentService struct {
	repo      repository.AppointmentRepository
	publisher queue.Publisher // nil when Redis is not configured
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *slog.Logger
}

func NewAppointmentService(repo repository.AppointmentRepository, publisher queue.Publisher, m *metrics.Metrics) *AppointmentService {
	return &AppointmentService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
		logger:    slog.Default().With("component", "appointments"),
	}
}

// Create validates and inserts one appointment with status pending.
func (s *AppointmentService) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	date, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	a := &model.Appointment{
		Service:         req.Service,
		Vehicle:         strings.TrimSpace(req.Vehicle),
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		Location:        req.Location,
		Email:           model.NormalizeEmail(req.Email),
		Status:          model.StatusPending,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.metrics.AppointmentCreated()

	s.publish(ctx, queue.NewAppointmentBookedEvent(a.ID, a.Service, a.Vehicle, a.Date, a.AppointmentTime, a.Location))
	return a, nil
}

// CreateAppointment lets the service back a booking wizard directly.
func (s *AppointmentService) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	return s.Create(ctx, req)
}

func (s *AppointmentService) validate(req *model.CreateAppointmentRequest) (time.Time, error) {
	if !model.IsValidService(req.Service) {
		return time.Time{}, fmt.Errorf("%w: unknown service %q", model.ErrInvalidAppointment, req.Service)
	}
	if strings.TrimSpace(req.Vehicle) == "" {
		return time.Time{}, fmt.Errorf("%w: vehicle is required", model.ErrInvalidAppointment)
	}
	date, err := time.Parse(model.DateLayout, req.AppointmentDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: appointment_date must be YYYY-MM-DD", model.ErrInvalidAppointment)
	}
	today, _ := time.Parse(model.DateLayout, s.now().Format(model.DateLayout))
	if date.Before(today) {
		return time.Time{}, fmt.Errorf("%w: appointment_date is in the past", model.ErrInvalidAppointment)
	}
	if !model.IsValidTimeSlot(req.AppointmentTime) {
		return time.Time{}, fmt.Errorf("%w: unknown time slot %q", model.ErrInvalidAppointment, req.AppointmentTime)
	}
	if !model.IsValidLocation(req.Location) {
		return time.Time{}, fmt.Errorf("%w: unknown location %q", model.ErrInvalidAppointment, req.Location)
	}
	if !validation.IsEmail(model.NormalizeEmail(req.Email)) {
		return time.Time{}, fmt.Errorf("%w: invalid email", model.ErrInvalidAppointment)
	}
	return date, nil
}

// History returns the appointments booked under email, newest first.
// Non-admin callers may only read their own address.
func (s *AppointmentService) History(ctx context.Context, callerEmail string, isAdmin bool, email string) ([]model.Appointment, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		email = model.NormalizeEmail(callerEmail)
	}
	if !isAdmin && email != model.NormalizeEmail(callerEmail) {
		return nil, model.ErrForbiddenEmail
	}
	return s.repo.ListByEmail(ctx, email)
}

// AdminList returns every appointment, optionally filtered by status.
func (s *AppointmentService) AdminList(ctx context.Context, status string, limit int) ([]model.Appointment, error) {
	if status != "" && !model.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = defaultAdminListLimit
	}
	if limit > maxAdminListLimit {
		limit = maxAdminListLimit
	}
	return s.repo.List(ctx, status, limit)
}

// UpdateStatus moves an appointment to status and tells its subscribers.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	if !model.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	a, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NewStatusChangedEvent(a.ID, a.Status))
	return a, nil
}

// publish logs instead of failing: the row is stored and the event only
// drives notifications.
func (s *AppointmentService) publish(ctx context.Context, event queue.BookingEvent) {
	if s.publisher == nil {
		return
	}
	msgID, err := s.publisher.Publish(ctx, queue.StreamBookings, event)
	if err != nil {
		s.logger.Error("publish booking event failed", "type", event.Type, "appointment_id", event.AppointmentID, "error", err)
		return
	}
	s.logger.Debug("published booking event", "type", event.Type, "appointment_id", event.AppointmentID, "message_id", msgID)
}
