package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"teslabooking/internal/model"
)

type pushSubscriptionRepository struct {
	db *sqlx.DB
}

func NewPushSubscriptionRepository(db *sqlx.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

// Upsert stores a device token. A token that already exists is reassigned,
// since the same device may move between appointments or accounts.
func (r *pushSubscriptionRepository) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (appointment_id, user_id, device_token, platform, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (device_token) DO UPDATE SET
			appointment_id = EXCLUDED.appointment_id,
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, sub.AppointmentID, sub.UserID, sub.DeviceToken, sub.Platform).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert push subscription: %w", err)
	}
	return nil
}

func (r *pushSubscriptionRepository) Delete(ctx context.Context, deviceToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE device_token = $1`, deviceToken); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (r *pushSubscriptionRepository) ListAdmin(ctx context.Context) ([]model.PushSubscription, error) {
	query := `
		SELECT ps.id, ps.appointment_id, ps.user_id, ps.device_token, ps.platform, ps.created_at, ps.updated_at
		FROM push_subscriptions ps
		JOIN user_roles ur ON ur.user_id = ps.user_id AND ur.role = $1
		ORDER BY ps.updated_at DESC
	`
	subs := []model.PushSubscription{}
	if err := r.db.SelectContext(ctx, &subs, query, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("list admin subscriptions: %w", err)
	}
	return subs, nil
}

func (r *pushSubscriptionRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]model.PushSubscription, error) {
	query := `
		SELECT id, appointment_id, user_id, device_token, platform, created_at, updated_at
		FROM push_subscriptions
		WHERE appointment_id = $1
		ORDER BY updated_at DESC
	`
	subs := []model.PushSubscription{}
	if err := r.db.SelectContext(ctx, &subs, query, appointmentID); err != nil {
		return nil, fmt.Errorf("list appointment subscriptions: %w", err)
	}
	return subs, nil
}
