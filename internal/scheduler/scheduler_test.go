package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/database"
	"github.com/illufoxKusanagi/daily-reminder/internal/models"
	"github.com/illufoxKusanagi/daily-reminder/internal/repository"
)

type fakeNotifier struct {
	mu     sync.Mutex
	shown  []string // event ids in dispatch order
	titles []string
	err    error
}

func (f *fakeNotifier) Show(event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, event.ID)
	f.titles = append(f.titles, event.Title)
	return f.err
}

func (f *fakeNotifier) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shown...)
}

func newTestScheduler(t *testing.T) (*Scheduler, repository.EventRepository, *fakeNotifier) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "activities.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repository.NewEventRepository(db.DB(), zerolog.Nop())
	notifier := &fakeNotifier{}
	s := New(repo, notifier, zerolog.Nop(), DefaultTick, prometheus.NewRegistry())
	repo.Subscribe(s.HandleChange)

	return s, repo, notifier
}

func createEvent(t *testing.T, repo repository.EventRepository, title, reminderTime string, enabled bool) *models.Event {
	t.Helper()

	rt := reminderTime
	req := &models.EventRequest{
		Category:        "work",
		StartDate:       "2025-01-01T09:00:00",
		EndDate:         "2025-01-01T10:00:00",
		Title:           title,
		Color:           "#4444ff",
		ReminderTime:    &rt,
		ReminderEnabled: enabled,
	}
	ev, err := repo.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return ev
}

func TestClampTick(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultTick},
		{5 * time.Second, MinTick},
		{30 * time.Second, 30 * time.Second},
		{5 * time.Minute, MaxTick},
	}
	for _, tt := range tests {
		if got := ClampTick(tt.in); got != tt.want {
			t.Errorf("ClampTick(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTickFiresDueReminderOnce(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 8, 57, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	ev := createEvent(t, repo, "standup", "2025-01-01T08:55:00", true)

	s.Tick()

	if calls := notifier.calls(); len(calls) != 1 || calls[0] != ev.ID {
		t.Fatalf("notifier calls = %v, want exactly [%s]", calls, ev.ID)
	}

	got, err := repo.GetByID(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ReminderEnabled {
		t.Error("reminder still enabled after fire")
	}

	// Further ticks must not re-fire: the flag is down.
	s.Tick()
	s.Tick()
	if calls := notifier.calls(); len(calls) != 1 {
		t.Errorf("notifier called %d times across ticks, want 1", len(calls))
	}
}

func TestFutureReminderDoesNotFire(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	createEvent(t, repo, "standup", "2025-01-01T08:55:00", true)

	s.Tick()
	if calls := notifier.calls(); len(calls) != 0 {
		t.Errorf("notifier calls = %v, want none before reminder time", calls)
	}
}

func TestDisableBeforeFire(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	ev := createEvent(t, repo, "standup", "2025-01-01T08:55:00", true)

	// Client turns the reminder off before it comes due.
	rt := "2025-01-01T08:55:00"
	req := &models.EventRequest{
		Category:        ev.Category,
		StartDate:       ev.StartDate,
		EndDate:         ev.EndDate,
		Title:           ev.Title,
		Color:           ev.Color,
		ReminderTime:    &rt,
		ReminderEnabled: false,
	}
	if _, err := repo.Update(context.Background(), ev.ID, req); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	now = time.Date(2025, 1, 1, 9, 30, 0, 0, time.Local)
	s.Tick()
	s.Tick()
	s.Tick()

	if calls := notifier.calls(); len(calls) != 0 {
		t.Errorf("notifier calls = %v, want none after disable", calls)
	}
}

func TestCatchUpFiresAllOverdueOldestFirst(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	// Inserted out of order; firing order must follow reminder time.
	mid := createEvent(t, repo, "five minutes ago", "2025-01-01T11:55:00", true)
	oldest := createEvent(t, repo, "ten minutes ago", "2025-01-01T11:50:00", true)
	newest := createEvent(t, repo, "one minute ago", "2025-01-01T11:59:00", true)

	// First pass after startup catches all of them.
	s.Tick()

	want := []string{oldest.ID, mid.ID, newest.ID}
	if calls := notifier.calls(); !reflect.DeepEqual(calls, want) {
		t.Fatalf("catch-up fired %v, want %v", calls, want)
	}

	s.Tick()
	if calls := notifier.calls(); len(calls) != 3 {
		t.Errorf("subsequent tick re-fired: %d calls total, want 3", len(calls))
	}
}

func TestDeletedEventNeverFires(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	ev := createEvent(t, repo, "standup", "2025-01-01T08:55:00", true)
	if err := repo.Delete(context.Background(), ev.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	now = time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local)
	s.Tick()

	if calls := notifier.calls(); len(calls) != 0 {
		t.Errorf("notifier calls = %v, want none for deleted event", calls)
	}
}

func TestNotifierFailureStillDisables(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)
	notifier.err = errors.New("notification daemon unreachable")

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	ev := createEvent(t, repo, "standup", "2025-01-01T08:55:00", true)

	s.Tick()

	got, err := repo.GetByID(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ReminderEnabled {
		t.Error("reminder still enabled after failed dispatch; broken notifier must not hot-loop")
	}

	s.Tick()
	if calls := notifier.calls(); len(calls) != 1 {
		t.Errorf("notifier called %d times, want 1", len(calls))
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	s, repo, _ := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	createEvent(t, repo, "a", "2025-01-01T08:55:00", true)
	createEvent(t, repo, "b", "2025-01-01T09:55:00", true)
	createEvent(t, repo, "c", "2025-01-01T07:00:00", true) // already due, not in snapshot

	s.Refresh()
	first := s.Armed()

	s.Refresh()
	s.Refresh()
	if got := s.Armed(); !reflect.DeepEqual(got, first) {
		t.Errorf("repeated Refresh changed snapshot: %v != %v", got, first)
	}
	if len(first) != 2 {
		t.Errorf("snapshot holds %d reminders, want 2 future ones", len(first))
	}
}

func TestChangeSignalsKeepSnapshotCurrent(t *testing.T) {
	s, repo, _ := newTestScheduler(t)

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	// Subscribe in newTestScheduler means creates refresh the snapshot.
	ev := createEvent(t, repo, "standup", "2025-01-01T08:55:00", true)
	if armed := s.Armed(); len(armed) != 1 {
		t.Fatalf("snapshot after create = %v, want the new reminder", armed)
	}

	if err := repo.Delete(context.Background(), ev.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if armed := s.Armed(); len(armed) != 0 {
		t.Errorf("snapshot after delete = %v, want empty", armed)
	}
}
