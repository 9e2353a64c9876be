package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/remindline/internal/database"
	"github.com/hray3182/remindline/internal/models"
)

const reminderColumns = `r.id, r.user_id, r.message, r.time_field, r.frequency, r.is_active,
	r.created_at, r.last_delivered_at, COALESCE(s.timezone, '')`

const reminderFrom = ` FROM reminders r LEFT JOIN user_settings s ON s.user_id = r.user_id`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, message, time_field, frequency, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		reminder.UserID, reminder.Message, reminder.TimeField, reminder.Frequency, reminder.Active,
	).Scan(&reminder.ID, &reminder.CreatedAt)
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	reminder, err := scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+reminderFrom+` WHERE r.id = $1`,
		reminderID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return reminder, err
}

func (r *ReminderRepository) ListActive(ctx context.Context) ([]*models.Reminder, error) {
	return r.query(ctx, `SELECT `+reminderColumns+reminderFrom+` WHERE r.is_active ORDER BY r.id`)
}

func (r *ReminderRepository) ListActiveByOwner(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+reminderFrom+` WHERE r.is_active AND r.user_id = $1 ORDER BY r.id`,
		userID,
	)
}

func (r *ReminderRepository) ListByOwner(ctx context.Context, userID int64, limit int) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+reminderFrom+` WHERE r.user_id = $1 ORDER BY r.id DESC LIMIT $2`,
		userID, limit,
	)
}

func (r *ReminderRepository) ListAll(ctx context.Context, limit int) ([]*models.Reminder, error) {
	return r.query(ctx, `SELECT `+reminderColumns+reminderFrom+` ORDER BY r.id DESC LIMIT $1`, limit)
}

func (r *ReminderRepository) Delete(ctx context.Context, reminderID, userID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE id = $1 AND user_id = $2`,
		reminderID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReminderRepository) Deactivate(ctx context.Context, reminderID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET is_active = false WHERE id = $1`,
		reminderID,
	)
	return err
}

func (r *ReminderRepository) UpdateTimeField(ctx context.Context, reminderID, userID int64, timeField string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET time_field = $1 WHERE id = $2 AND user_id = $3`,
		timeField, reminderID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReminderRepository) CountDeliveries(ctx context.Context, reminderID int64, from, to time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminder_deliveries
		 WHERE reminder_id = $1 AND delivered_at >= $2 AND delivered_at < $3`,
		reminderID, from, to,
	).Scan(&count)
	return count, err
}

func (r *ReminderRepository) CompleteDelivery(ctx context.Context, reminder *models.Reminder, at time.Time) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if reminder.IsOnce() {
			// reminder_deliveries rows go with it via ON DELETE CASCADE
			tag, err := tx.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, reminder.ID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrNotFound
			}
			return nil
		}

		tag, err := tx.Exec(ctx,
			`UPDATE reminders SET last_delivered_at = $1 WHERE id = $2`,
			at, reminder.ID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO reminder_deliveries (reminder_id, delivered_at) VALUES ($1, $2)`,
			reminder.ID, at,
		)
		return err
	})
}

func (r *ReminderRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func scanReminder(row scanner) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	if err := row.Scan(&reminder.ID, &reminder.UserID, &reminder.Message, &reminder.TimeField,
		&reminder.Frequency, &reminder.Active, &reminder.CreatedAt, &reminder.LastDeliveredAt,
		&reminder.Timezone); err != nil {
		return nil, err
	}
	return reminder, nil
}
