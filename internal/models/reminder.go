package models

import (
	"time"

	"github.com/hray3182/remindline/internal/recurrence"
)

type Reminder struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Message         string     `json:"message"`
	TimeField       string     `json:"time_field"` // "HH:MM" or "YYYY-MM-DD HH:MM" for once
	Frequency       string     `json:"frequency"`  // recurrence tag, see recurrence.Spec.Encode
	Active          bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	LastDeliveredAt *time.Time `json:"last_delivered_at"`
	// Timezone is the owner's IANA zone, joined from user_settings on reads.
	// Empty when the owner never set one.
	Timezone string `json:"timezone,omitempty"`
}

// NewReminder builds an active record from a parsed recurrence.
func NewReminder(userID int64, message string, spec recurrence.Spec) *Reminder {
	field, tag := spec.Encode()
	return &Reminder{
		UserID:    userID,
		Message:   message,
		TimeField: field,
		Frequency: tag,
		Active:    true,
	}
}

// Spec decodes the stored recurrence in the owner's location.
func (r *Reminder) Spec(loc *time.Location) (recurrence.Spec, error) {
	return recurrence.Decode(r.TimeField, r.Frequency, loc)
}

// IsOnce returns true if the reminder is deleted after its first delivery
func (r *Reminder) IsOnce() bool {
	return r.Frequency == string(recurrence.KindOnce)
}

// Location resolves the owner's timezone, falling back to def.
func (r *Reminder) Location(def *time.Location) *time.Location {
	if r.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return def
	}
	return loc
}
