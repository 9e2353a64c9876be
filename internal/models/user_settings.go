package models

import "time"

// UserSettings holds per-owner preferences. Only the timezone is used today;
// it decides which calendar day and week a reminder is evaluated in.
type UserSettings struct {
	UserID   int64  `json:"user_id"`
	Timezone string `json:"timezone,omitempty"`
}

// Location parses the stored timezone, falling back to def when the owner
// never chose one or the stored name no longer loads.
func (s *UserSettings) Location(def *time.Location) *time.Location {
	if s.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return def
	}
	return loc
}
