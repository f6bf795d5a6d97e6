package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"teslabooking/internal/model"
)

type photoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func (r *photoRepository) Create(ctx context.Context, p *model.AppointmentPhoto) error {
	query := `
		INSERT INTO appointment_photos (appointment_id, object_key, url, uploaded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, p.AppointmentID, p.ObjectKey, p.URL, p.UploadedBy).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment photo: %w", err)
	}
	return nil
}

func (r *photoRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]model.AppointmentPhoto, error) {
	photos := []model.AppointmentPhoto{}
	err := r.db.SelectContext(ctx, &photos, `
		SELECT id, appointment_id, object_key, url, uploaded_by, created_at
		FROM appointment_photos
		WHERE appointment_id = $1
		ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list appointment photos: %w", err)
	}
	return photos, nil
}
