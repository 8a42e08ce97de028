// Package scheduler drives the periodic reminder scan. It reads armed
// reminders whose time has arrived, fires each one through the notifier,
// and durably clears the reminder flag so an event never fires twice on
// the same arm.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/notify"
	"github.com/illufoxKusanagi/daily-reminder/internal/repository"
)

const (
	// DefaultTick is the default scan cadence.
	DefaultTick = 30 * time.Second
	// MinTick and MaxTick bound the configurable cadence.
	MinTick = 10 * time.Second
	MaxTick = 60 * time.Second
)

// ClampTick forces d into the supported cadence range, substituting the
// default for a zero value.
func ClampTick(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultTick
	case d < MinTick:
		return MinTick
	case d > MaxTick:
		return MaxTick
	default:
		return d
	}
}

// Scheduler periodically fires due reminders. The database is the
// authoritative state; the in-memory snapshot exists only for logging and
// introspection, so missed change signals are harmless.
type Scheduler struct {
	repo     repository.EventRepository
	notifier notify.Notifier
	log      zerolog.Logger
	tick     time.Duration
	cron     *cron.Cron
	// now is the clock source, overridable in tests
	now func() time.Time

	// tickMu serializes ticks against each other and against Stop.
	// Notifier dispatch is spawn-and-forget, so no slow work runs under it.
	tickMu sync.Mutex

	mu       sync.Mutex
	snapshot map[string]string

	firedTotal  prometheus.Counter
	notifyFails prometheus.Counter
	ticksTotal  prometheus.Counter
	armedGauge  prometheus.Gauge
}

// New creates a scheduler scanning at the given cadence. Metrics are
// registered on reg.
func New(repo repository.EventRepository, notifier notify.Notifier, log zerolog.Logger, tick time.Duration, reg prometheus.Registerer) *Scheduler {
	s := &Scheduler{
		repo:     repo,
		notifier: notifier,
		log:      log,
		tick:     ClampTick(tick),
		cron:     cron.New(),
		now:      time.Now,
		snapshot: make(map[string]string),
	}

	s.firedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daily_reminder",
		Name:      "reminders_fired_total",
		Help:      "Number of reminders fired since process start",
	})
	s.notifyFails = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daily_reminder",
		Name:      "notify_failures_total",
		Help:      "Number of notifier dispatch failures",
	})
	s.ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daily_reminder",
		Name:      "scheduler_ticks_total",
		Help:      "Number of scheduler scan passes",
	})
	s.armedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daily_reminder",
		Name:      "reminders_armed",
		Help:      "Armed future reminders in the last snapshot",
	})
	reg.MustRegister(s.firedTotal, s.notifyFails, s.ticksTotal, s.armedGauge)

	return s
}

// Start performs one immediate catch-up tick, then begins the periodic
// scan. Reminders that came due while the process was down fire on the
// first pass, oldest first.
func (s *Scheduler) Start() error {
	s.Refresh()
	s.Tick()

	spec := fmt.Sprintf("@every %s", s.tick)
	if _, err := s.cron.AddFunc(spec, s.Tick); err != nil {
		return fmt.Errorf("failed to schedule reminder tick: %v", err)
	}
	s.cron.Start()

	s.log.Info().Str("tick", s.tick.String()).Msg("Reminder scheduler started")
	return nil
}

// Stop halts the periodic scan and waits for an in-flight tick. Already
// spawned notifier subprocesses keep running on their own.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.log.Info().Msg("Reminder scheduler stopped")
}

// Tick runs one scan pass: every reminder with reminder time at or before
// now fires once and is disabled. Errors never abort the pass.
func (s *Scheduler) Tick() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	ctx := context.Background()
	now := s.now()

	pending, err := s.repo.PendingReminders(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read pending reminders")
		return
	}

	s.ticksTotal.Inc()

	fired := 0
	for _, p := range pending {
		if s.fire(ctx, p) {
			fired++
		}
	}

	if fired > 0 {
		s.log.Info().Int("fired", fired).Msg("Reminders fired")
	} else {
		s.log.Debug().Msg("Tick completed, nothing due")
	}
}

// fire dispatches one reminder and clears its flag. Returns whether the
// reminder was disabled; if the disable write fails the notifier is not
// re-invoked here, the row simply comes back on the next tick.
func (s *Scheduler) fire(ctx context.Context, p repository.PendingReminder) bool {
	event, err := s.repo.GetByID(ctx, p.EventID)
	if err != nil {
		// Deleted between the scan and now; nothing to do.
		s.log.Warn().Err(err).Str("event_id", p.EventID).Msg("Due reminder vanished before dispatch")
		return false
	}

	if err := s.notifier.Show(event); err != nil {
		// The reminder is still disabled below; retrying a broken
		// notifier every tick would be a hot loop for nothing.
		s.notifyFails.Inc()
		s.log.Error().Err(err).Str("event_id", event.ID).Str("title", event.Title).Msg("Notifier dispatch failed")
	}

	if err := s.repo.DisableReminder(ctx, p.EventID); err != nil {
		s.log.Error().Err(err).Str("event_id", p.EventID).Msg("Failed to disable fired reminder")
		return false
	}

	s.firedTotal.Inc()
	s.mu.Lock()
	delete(s.snapshot, p.EventID)
	s.mu.Unlock()

	s.log.Info().Str("event_id", event.ID).Str("title", event.Title).Str("reminder_time", p.ReminderTime).Msg("Reminder fired")
	return true
}

// Refresh rebuilds the snapshot of future armed reminders. Safe to call
// any number of times; the tick never consults the snapshot to decide
// whether to fire.
func (s *Scheduler) Refresh() {
	upcoming, err := s.repo.UpcomingReminders(context.Background(), s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to refresh reminder snapshot")
		return
	}

	snapshot := make(map[string]string, len(upcoming))
	for _, p := range upcoming {
		snapshot[p.EventID] = p.ReminderTime
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	s.armedGauge.Set(float64(len(snapshot)))
	s.log.Debug().Int("armed", len(snapshot)).Msg("Reminder snapshot refreshed")
}

// Armed reports the snapshot contents, for the status endpoint and logs.
func (s *Scheduler) Armed() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.snapshot))
	for id, t := range s.snapshot {
		out[id] = t
	}
	return out
}

// HandleChange is the repository listener: any committed write refreshes
// the snapshot.
func (s *Scheduler) HandleChange(change repository.Change) {
	s.log.Debug().Str("kind", string(change.Kind)).Str("event_id", change.EventID).Msg("Repository change observed")
	s.Refresh()
}
