package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"teslabooking/internal/model"
)

const appointmentColumns = `id, service, vehicle, appointment_date, appointment_time, location, email, status, created_at, updated_at`

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (service, vehicle, appointment_date, appointment_time, location, email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.Service, a.Vehicle, a.AppointmentDate, a.AppointmentTime, a.Location, a.Email, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	a.FillDate()
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.GetContext(ctx, &a, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	a.FillDate()
	return &a, nil
}

func (r *appointmentRepository) ListByEmail(ctx context.Context, email string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE email = $1
		ORDER BY appointment_date DESC, appointment_time DESC`

	out := []model.Appointment{}
	if err := r.db.SelectContext(ctx, &out, query, email); err != nil {
		return nil, fmt.Errorf("failed to list appointments by email: %w", err)
	}
	fillDates(out)
	return out, nil
}

func (r *appointmentRepository) List(ctx context.Context, status string, limit int) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE ($1 = '' OR status = $1)
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT $2`

	out := []model.Appointment{}
	if err := r.db.SelectContext(ctx, &out, query, status, limit); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	fillDates(out)
	return out, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	query := `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + appointmentColumns

	var a model.Appointment
	if err := r.db.GetContext(ctx, &a, query, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	a.FillDate()
	return &a, nil
}

func fillDates(list []model.Appointment) {
	for i := range list {
		list[i].FillDate()
	}
}
