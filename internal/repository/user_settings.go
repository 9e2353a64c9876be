package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/remindline/internal/database"
)

type UserSettingsRepository struct {
	db *database.DB
}

func NewUserSettingsRepository(db *database.DB) *UserSettingsRepository {
	return &UserSettingsRepository{db: db}
}

func (r *UserSettingsRepository) GetTimezone(ctx context.Context, userID int64) (string, error) {
	var tz string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT timezone FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return tz, err
}

func (r *UserSettingsRepository) SetTimezone(ctx context.Context, userID int64, timezone string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, timezone) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET timezone = EXCLUDED.timezone, updated_at = NOW()`,
		userID, timezone,
	)
	return err
}
