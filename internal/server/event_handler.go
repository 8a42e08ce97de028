package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/models"
	"github.com/illufoxKusanagi/daily-reminder/internal/repository"
)

const upcomingLimit = 10

// EventHandler handles HTTP requests related to events and interacts with
// the EventRepository. Every successful write refreshes the scheduler.
type EventHandler struct {
	repo  repository.EventRepository
	sched Scheduler
	log   *zerolog.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(repo repository.EventRepository, sched Scheduler, log *zerolog.Logger) *EventHandler {
	return &EventHandler{
		repo:  repo,
		sched: sched,
		log:   log,
	}
}

// ListEvents returns all events ordered by start date
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list events")
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	if events == nil {
		events = []*models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateEvent handles the creation of a new event
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to create event")
		writeError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	h.sched.Refresh()
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent retrieves an event by ID
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	event, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.log.Error().Err(err).Str("event_id", id).Msg("Failed to get event")
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent updates an existing event
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "Event not found")
		case errors.Is(err, repository.ErrInvalidEvent):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Str("event_id", id).Msg("Failed to update event")
			writeError(w, http.StatusInternalServerError, "Failed to update event")
		}
		return
	}

	h.sched.Refresh()
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent deletes an event by ID
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		h.log.Error().Err(err).Str("event_id", id).Msg("Failed to delete event")
		writeError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}

	h.sched.Refresh()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// EventsByDate returns events starting on a given calendar day
func (h *EventHandler) EventsByDate(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	events, err := h.repo.ListByDate(r.Context(), date)
	if err != nil {
		h.log.Error().Err(err).Str("date", date).Msg("Failed to list events by date")
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	if events == nil {
		events = []*models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// UpcomingEvents returns the next scheduled events
func (h *EventHandler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.repo.Upcoming(r.Context(), time.Now(), upcomingLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list upcoming events")
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	if events == nil {
		events = []*models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
