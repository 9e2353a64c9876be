package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hray3182/remindline/internal/database"
	"github.com/hray3182/remindline/internal/models"
)

// ErrNotFound is returned when a reminder does not exist (or is not owned by
// the caller).
var ErrNotFound = errors.New("reminder not found")

// ReminderStore persists reminders and their delivery log.
type ReminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error)
	ListActive(ctx context.Context) ([]*models.Reminder, error)
	ListActiveByOwner(ctx context.Context, userID int64) ([]*models.Reminder, error)
	// ListByOwner returns the newest records of one owner, inactive included.
	ListByOwner(ctx context.Context, userID int64, limit int) ([]*models.Reminder, error)
	ListAll(ctx context.Context, limit int) ([]*models.Reminder, error)
	Delete(ctx context.Context, reminderID, userID int64) error
	Deactivate(ctx context.Context, reminderID int64) error
	// UpdateTimeField rewrites the stored time of one owner's reminder.
	UpdateTimeField(ctx context.Context, reminderID, userID int64, timeField string) error
	// CountDeliveries counts log rows with from <= delivered_at < to.
	CountDeliveries(ctx context.Context, reminderID int64, from, to time.Time) (int, error)
	// CompleteDelivery records a successful send atomically: a one-shot
	// reminder is deleted, a recurring one gets last_delivered_at stamped
	// and a delivery-log row.
	CompleteDelivery(ctx context.Context, reminder *models.Reminder, at time.Time) error
}

// SettingsStore persists per-owner settings.
type SettingsStore interface {
	// GetTimezone returns "" when the owner never set one.
	GetTimezone(ctx context.Context, userID int64) (string, error)
	SetTimezone(ctx context.Context, userID int64, timezone string) error
}

// Stores bundles the backends opened for one DATABASE_URI.
type Stores struct {
	Reminders ReminderStore
	Settings  SettingsStore
	Driver    string
	close     func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the database named by uri and prepares its schema.
func Open(ctx context.Context, uri string, log zerolog.Logger) (*Stores, error) {
	driver, dsn, err := database.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch driver {
	case database.DriverPostgres:
		db, err := database.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &Stores{
			Reminders: NewReminderRepository(db),
			Settings:  NewUserSettingsRepository(db),
			Driver:    driver,
			close:     db.Close,
		}, nil
	default:
		db, err := database.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Reminders: NewSQLiteReminderRepository(db),
			Settings:  NewSQLiteUserSettingsRepository(db),
			Driver:    driver,
			close:     func() { _ = db.Close() },
		}, nil
	}
}

type scanner interface {
	Scan(dest ...any) error
}
