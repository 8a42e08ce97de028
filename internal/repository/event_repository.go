package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/models"
)

var validate = validator.New()

// PendingReminder is one armed reminder row as seen by the scheduler.
type PendingReminder struct {
	EventID      string
	ReminderTime string
}

// EventRepository defines the interface for event data access, including
// the reminder queries the scheduler runs on every tick.
type EventRepository interface {
	List(ctx context.Context) ([]*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, req *models.EventRequest) (*models.Event, error)
	Update(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error)
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, date string) ([]*models.Event, error)
	Upcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error)
	PendingReminders(ctx context.Context, now time.Time) ([]PendingReminder, error)
	UpcomingReminders(ctx context.Context, now time.Time) ([]PendingReminder, error)
	DisableReminder(ctx context.Context, id string) error
	Subscribe(listener ChangeListener)
}

type eventRepository struct {
	db  *sql.DB
	log zerolog.Logger

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB, log zerolog.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log,
	}
}

// Subscribe registers a listener for change notifications. Listeners are
// called synchronously after the write commits.
func (r *eventRepository) Subscribe(listener ChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *eventRepository) emit(kind ChangeKind, id string) {
	r.mu.Lock()
	listeners := make([]ChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l(Change{Kind: kind, EventID: id})
	}
}

// validateRequest checks required fields and the event invariants:
// endDate must not precede startDate, and an enabled reminder must carry a
// reminder time.
func validateRequest(req *models.EventRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	start, err := models.ParseTime(req.StartDate)
	if err != nil {
		return fmt.Errorf("%w: invalid startDate: %v", ErrInvalidEvent, err)
	}
	end, err := models.ParseTime(req.EndDate)
	if err != nil {
		return fmt.Errorf("%w: invalid endDate: %v", ErrInvalidEvent, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate precedes startDate", ErrInvalidEvent)
	}

	if req.ReminderTime != nil {
		if _, err := models.ParseTime(*req.ReminderTime); err != nil {
			return fmt.Errorf("%w: invalid reminderTime: %v", ErrInvalidEvent, err)
		}
	} else if req.ReminderEnabled {
		return fmt.Errorf("%w: reminder enabled without reminderTime", ErrInvalidEvent)
	}

	return nil
}

const eventColumns = `id, category, start_date, end_date, title, color, description,
	reminder_time, reminder_enabled, created_at, updated_at`

func scanEvent(s interface{ Scan(...any) error }) (*models.Event, error) {
	var event models.Event
	var updatedAt sql.NullString
	err := s.Scan(
		&event.ID,
		&event.Category,
		&event.StartDate,
		&event.EndDate,
		&event.Title,
		&event.Color,
		&event.Description,
		&event.ReminderTime,
		&event.ReminderEnabled,
		&event.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.UpdatedAt = updatedAt.String
	return &event, nil
}

// List returns all events ordered by start date
func (r *eventRepository) List(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list events")
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// GetByID retrieves an event by its ID
func (r *eventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		r.log.Error().Err(err).Str("event_id", id).Msg("Failed to get event by ID")
		return nil, err
	}

	return event, nil
}

// Create inserts a new event with a freshly assigned id
func (r *eventRepository) Create(ctx context.Context, req *models.EventRequest) (*models.Event, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:              uuid.New().String(),
		Category:        req.Category,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Title:           req.Title,
		Color:           req.Color,
		Description:     req.Description,
		ReminderTime:    req.ReminderTime,
		ReminderEnabled: req.ReminderEnabled,
		CreatedAt:       models.FormatTime(time.Now()),
	}

	query := `
		INSERT INTO events (id, category, start_date, end_date, title, color, description,
			reminder_time, reminder_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Category,
		event.StartDate,
		event.EndDate,
		event.Title,
		event.Color,
		event.Description,
		event.ReminderTime,
		event.ReminderEnabled,
		event.CreatedAt,
	)

	if err != nil {
		r.log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to create event")
		return nil, err
	}

	r.emit(ChangeCreated, event.ID)
	return event, nil
}

// Update overwrites all mutable fields of an existing event
func (r *eventRepository) Update(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE events
		SET category = ?, start_date = ?, end_date = ?, title = ?, color = ?,
			description = ?, reminder_time = ?, reminder_enabled = ?, updated_at = ?
		WHERE id = ?
	`

	now := models.FormatTime(time.Now())
	_, err = r.db.ExecContext(ctx, query,
		req.Category,
		req.StartDate,
		req.EndDate,
		req.Title,
		req.Color,
		req.Description,
		req.ReminderTime,
		req.ReminderEnabled,
		now,
		id,
	)

	if err != nil {
		r.log.Error().Err(err).Str("event_id", id).Msg("Failed to update event")
		return nil, err
	}

	event := &models.Event{
		ID:              id,
		Category:        req.Category,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Title:           req.Title,
		Color:           req.Color,
		Description:     req.Description,
		ReminderTime:    req.ReminderTime,
		ReminderEnabled: req.ReminderEnabled,
		CreatedAt:       existing.CreatedAt,
		UpdatedAt:       now,
	}

	r.emit(ChangeUpdated, id)
	if reminderFieldsChanged(existing, event) {
		r.emit(ChangeReminderChanged, id)
	}

	return event, nil
}

func reminderFieldsChanged(before, after *models.Event) bool {
	if before.ReminderEnabled != after.ReminderEnabled {
		return true
	}
	switch {
	case before.ReminderTime == nil && after.ReminderTime == nil:
		return false
	case before.ReminderTime == nil || after.ReminderTime == nil:
		return true
	default:
		return *before.ReminderTime != *after.ReminderTime
	}
}

// Delete removes an event from the database
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.log.Error().Err(err).Str("event_id", id).Msg("Failed to delete event")
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to get rows affected for event delete")
		return err
	}

	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	r.emit(ChangeDeleted, id)
	return nil
}

// ListByDate returns events whose start date falls on the given calendar
// day (YYYY-MM-DD).
func (r *eventRepository) ListByDate(ctx context.Context, date string) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE DATE(start_date) = ?
		ORDER BY start_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		r.log.Error().Err(err).Str("date", date).Msg("Failed to list events by date")
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// Upcoming returns the next events starting at or after now.
func (r *eventRepository) Upcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE start_date >= ?
		ORDER BY start_date ASC, id ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, models.FormatTime(now), limit)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list upcoming events")
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// PendingReminders returns armed reminders whose time has arrived, in
// firing order: reminder time ascending, id ascending.
func (r *eventRepository) PendingReminders(ctx context.Context, now time.Time) ([]PendingReminder, error) {
	query := `
		SELECT id, reminder_time FROM events
		WHERE reminder_enabled = 1 AND reminder_time IS NOT NULL AND reminder_time <= ?
		ORDER BY reminder_time ASC, id ASC
	`

	return r.queryReminders(ctx, query, models.FormatTime(now))
}

// UpcomingReminders returns armed reminders still in the future, feeding
// the scheduler's introspective snapshot.
func (r *eventRepository) UpcomingReminders(ctx context.Context, now time.Time) ([]PendingReminder, error) {
	query := `
		SELECT id, reminder_time FROM events
		WHERE reminder_enabled = 1 AND reminder_time IS NOT NULL AND reminder_time > ?
		ORDER BY reminder_time ASC, id ASC
	`

	return r.queryReminders(ctx, query, models.FormatTime(now))
}

func (r *eventRepository) queryReminders(ctx context.Context, query, now string) ([]PendingReminder, error) {
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query reminders")
		return nil, err
	}
	defer rows.Close()

	var reminders []PendingReminder
	for rows.Next() {
		var p PendingReminder
		if err := rows.Scan(&p.EventID, &p.ReminderTime); err != nil {
			r.log.Error().Err(err).Msg("Failed to scan reminder row")
			return nil, err
		}
		reminders = append(reminders, p)
	}

	return reminders, rows.Err()
}

// DisableReminder clears the reminder flag for an event. Idempotent; a
// missing id is not an error.
func (r *eventRepository) DisableReminder(ctx context.Context, id string) error {
	query := `UPDATE events SET reminder_enabled = 0 WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.log.Error().Err(err).Str("event_id", id).Msg("Failed to disable reminder")
		return err
	}

	return nil
}
