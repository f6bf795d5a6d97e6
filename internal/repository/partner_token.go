package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"teslabooking/internal/model"
)

type partnerTokenRepository struct {
	db *sqlx.DB
}

func NewPartnerTokenRepository(db *sqlx.DB) PartnerTokenRepository {
	return &partnerTokenRepository{db: db}
}

func (r *partnerTokenRepository) Upsert(ctx context.Context, t *model.PartnerToken) error {
	query := `
		INSERT INTO partner_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, t.UserID, t.AccessToken, t.RefreshToken, t.ExpiresAt).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert partner token: %w", err)
	}
	return nil
}

func (r *partnerTokenRepository) GetByUser(ctx context.Context, userID string) (*model.PartnerToken, error) {
	query := `
		SELECT user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM partner_tokens
		WHERE user_id = $1
	`
	var t model.PartnerToken
	if err := r.db.GetContext(ctx, &t, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPartnerTokenNotFound
		}
		return nil, fmt.Errorf("get partner token: %w", err)
	}
	return &t, nil
}
