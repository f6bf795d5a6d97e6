package repository

import (
	"context"
	"time"

	"teslabooking/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHashed string) error
}

type RoleRepository interface {
	// ListByUser returns the roles assigned to a user; empty when none.
	ListByUser(ctx context.Context, userID string) ([]string, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PasswordResetRepository interface {
	Create(ctx context.Context, reset *model.PasswordReset) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.PasswordReset, error)
	MarkUsed(ctx context.Context, id string) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	// ListByEmail expects an already normalized email.
	ListByEmail(ctx context.Context, email string) ([]model.Appointment, error)
	// List returns all appointments, optionally filtered by status.
	List(ctx context.Context, status string, limit int) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error)
}

type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	Delete(ctx context.Context, deviceToken string) error
	// ListAdmin returns subscriptions registered by users holding the admin role.
	ListAdmin(ctx context.Context) ([]model.PushSubscription, error)
	ListByAppointment(ctx context.Context, appointmentID string) ([]model.PushSubscription, error)
}

type PartnerTokenRepository interface {
	Upsert(ctx context.Context, token *model.PartnerToken) error
	GetByUser(ctx context.Context, userID string) (*model.PartnerToken, error)
}

type PhotoRepository interface {
	Create(ctx context.Context, photo *model.AppointmentPhoto) error
	ListByAppointment(ctx context.Context, appointmentID string) ([]model.AppointmentPhoto, error)
}
