package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hray3182/remindline/internal/database"
	"github.com/hray3182/remindline/internal/models"
)

// SQLite stores timestamps as Unix milliseconds.

const sqliteReminderSelect = `SELECT r.id, r.user_id, r.message, r.time_field, r.frequency, r.is_active,
	r.created_at, r.last_delivered_at, COALESCE(s.timezone, '')
	FROM reminders r LEFT JOIN user_settings s ON s.user_id = r.user_id`

type SQLiteReminderRepository struct {
	db *database.SQLite
}

func NewSQLiteReminderRepository(db *database.SQLite) *SQLiteReminderRepository {
	return &SQLiteReminderRepository{db: db}
}

func (r *SQLiteReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	now := time.Now()
	res, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO reminders (user_id, message, time_field, frequency, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		reminder.UserID, reminder.Message, reminder.TimeField, reminder.Frequency, reminder.Active, now.UnixMilli(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reminder.ID = id
	reminder.CreatedAt = time.UnixMilli(now.UnixMilli())
	return nil
}

func (r *SQLiteReminderRepository) GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	reminder, err := scanSQLiteReminder(r.db.DB.QueryRowContext(ctx,
		sqliteReminderSelect+` WHERE r.id = ?`, reminderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return reminder, err
}

func (r *SQLiteReminderRepository) ListActive(ctx context.Context) ([]*models.Reminder, error) {
	return r.query(ctx, sqliteReminderSelect+` WHERE r.is_active = 1 ORDER BY r.id`)
}

func (r *SQLiteReminderRepository) ListActiveByOwner(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	return r.query(ctx, sqliteReminderSelect+` WHERE r.is_active = 1 AND r.user_id = ? ORDER BY r.id`, userID)
}

func (r *SQLiteReminderRepository) ListByOwner(ctx context.Context, userID int64, limit int) ([]*models.Reminder, error) {
	return r.query(ctx, sqliteReminderSelect+` WHERE r.user_id = ? ORDER BY r.id DESC LIMIT ?`, userID, limit)
}

func (r *SQLiteReminderRepository) ListAll(ctx context.Context, limit int) ([]*models.Reminder, error) {
	return r.query(ctx, sqliteReminderSelect+` ORDER BY r.id DESC LIMIT ?`, limit)
}

func (r *SQLiteReminderRepository) Delete(ctx context.Context, reminderID, userID int64) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = ? AND user_id = ?`, reminderID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reminder_deliveries WHERE reminder_id = ?`, reminderID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteReminderRepository) Deactivate(ctx context.Context, reminderID int64) error {
	_, err := r.db.DB.ExecContext(ctx, `UPDATE reminders SET is_active = 0 WHERE id = ?`, reminderID)
	return err
}

func (r *SQLiteReminderRepository) UpdateTimeField(ctx context.Context, reminderID, userID int64, timeField string) error {
	res, err := r.db.DB.ExecContext(ctx,
		`UPDATE reminders SET time_field = ? WHERE id = ? AND user_id = ?`,
		timeField, reminderID, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteReminderRepository) CountDeliveries(ctx context.Context, reminderID int64, from, to time.Time) (int, error) {
	var count int
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminder_deliveries
		 WHERE reminder_id = ? AND delivered_at >= ? AND delivered_at < ?`,
		reminderID, from.UnixMilli(), to.UnixMilli(),
	).Scan(&count)
	return count, err
}

func (r *SQLiteReminderRepository) CompleteDelivery(ctx context.Context, reminder *models.Reminder, at time.Time) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if reminder.IsOnce() {
		res, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, reminder.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminder_deliveries WHERE reminder_id = ?`, reminder.ID); err != nil {
			return err
		}
		return tx.Commit()
	}

	res, err := tx.ExecContext(ctx, `UPDATE reminders SET last_delivered_at = ? WHERE id = ?`, at.UnixMilli(), reminder.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reminder_deliveries (reminder_id, delivered_at) VALUES (?, ?)`,
		reminder.ID, at.UnixMilli(),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteReminderRepository) query(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanSQLiteReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func scanSQLiteReminder(row scanner) (*models.Reminder, error) {
	var (
		reminder  = &models.Reminder{}
		createdMS int64
		lastMS    sql.NullInt64
	)
	if err := row.Scan(&reminder.ID, &reminder.UserID, &reminder.Message, &reminder.TimeField,
		&reminder.Frequency, &reminder.Active, &createdMS, &lastMS, &reminder.Timezone); err != nil {
		return nil, err
	}
	reminder.CreatedAt = time.UnixMilli(createdMS)
	if lastMS.Valid {
		t := time.UnixMilli(lastMS.Int64)
		reminder.LastDeliveredAt = &t
	}
	return reminder, nil
}

type SQLiteUserSettingsRepository struct {
	db *database.SQLite
}

func NewSQLiteUserSettingsRepository(db *database.SQLite) *SQLiteUserSettingsRepository {
	return &SQLiteUserSettingsRepository{db: db}
}

func (r *SQLiteUserSettingsRepository) GetTimezone(ctx context.Context, userID int64) (string, error) {
	var tz string
	err := r.db.DB.QueryRowContext(ctx, `SELECT timezone FROM user_settings WHERE user_id = ?`, userID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return tz, err
}

func (r *SQLiteUserSettingsRepository) SetTimezone(ctx context.Context, userID int64, timezone string) error {
	_, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, timezone, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at`,
		userID, timezone, time.Now().UnixMilli(),
	)
	return err
}
