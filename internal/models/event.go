package models

import "time"

// TimeLayout is the ISO-8601 local wall-clock format used on the wire and
// in the database. The format is fixed-width, so lexicographic comparison
// of stored values matches chronological order.
const TimeLayout = "2006-01-02T15:04:05"

// Event is a single calendar entry with an optional fire-once reminder.
type Event struct {
	ID              string  `json:"id" db:"id"`
	Category        string  `json:"category" db:"category"`
	StartDate       string  `json:"startDate" db:"start_date"`
	EndDate         string  `json:"endDate" db:"end_date"`
	Title           string  `json:"title" db:"title"`
	Color           string  `json:"color" db:"color"`
	Description     string  `json:"description" db:"description"`
	ReminderTime    *string `json:"reminderTime" db:"reminder_time"`
	ReminderEnabled bool    `json:"isReminderEnabled" db:"reminder_enabled"`
	CreatedAt       string  `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt       string  `json:"updatedAt,omitempty" db:"updated_at"`
}

// EventRequest is the client payload for create and update. The id is
// server-assigned and ignored in request bodies.
type EventRequest struct {
	Category        string  `json:"category" validate:"required"`
	StartDate       string  `json:"startDate" validate:"required"`
	EndDate         string  `json:"endDate" validate:"required"`
	Title           string  `json:"title" validate:"required"`
	Color           string  `json:"color"`
	Description     string  `json:"description"`
	ReminderTime    *string `json:"reminderTime"`
	ReminderEnabled bool    `json:"isReminderEnabled"`
}

// FormatTime renders t in the wire format, local wall clock.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a wire-format timestamp in the host's local zone.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.Local)
}
