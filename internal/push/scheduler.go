package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/famwell/internal/store"
)

// ReminderScheduler sends one mood check-in reminder per user per day at
// the configured hour to users who have not checked in yet.
type ReminderScheduler struct {
	mu        sync.RWMutex
	notifier  *Notifier
	users     *store.UserStore
	checkins  *store.CheckInStore
	reminders *store.ReminderStore
	hour      int
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewReminderScheduler(notifier *Notifier, users *store.UserStore, checkins *store.CheckInStore, reminders *store.ReminderStore, hour int, logger *slog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		notifier:  notifier,
		users:     users,
		checkins:  checkins,
		reminders: reminders,
		hour:      hour,
		interval:  5 * time.Minute,
		now:       time.Now,
		logger:    logger.With("component", "reminders"),
	}
}

func (s *ReminderScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *ReminderScheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick returns the number of users reminded.
func (s *ReminderScheduler) tick() int {
	now := s.now()
	if now.Hour() != s.hour {
		return 0
	}
	day := now.Format("2006-01-02")
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UTC()

	users, err := s.users.List()
	if err != nil {
		s.logger.Error("list users", "error", err)
		return 0
	}

	reminded := 0
	for _, u := range users {
		if u.MemberID == nil {
			continue
		}
		done, err := s.checkins.HasCheckedInSince(*u.MemberID, midnight)
		if err != nil {
			s.logger.Error("check today's checkin", "user_id", u.ID, "error", err)
			continue
		}
		if done {
			continue
		}
		first, err := s.reminders.MarkSent(u.ID, day)
		if err != nil {
			s.logger.Error("record reminder", "user_id", u.ID, "error", err)
			continue
		}
		if !first {
			continue
		}
		s.notifier.NotifyUser(u.ID, KindMoodReminder, Payload{
			Title: "How are you feeling today?",
			Body:  "Take a moment to check in with your family.",
			URL:   "/checkin",
			Tag:   "mood-reminder",
		})
		reminded++
	}

	if reminded > 0 {
		s.logger.Info("mood reminders sent", "count", reminded, "day", day)
	}
	if err := s.reminders.Cleanup(now.AddDate(0, 0, -7).Format("2006-01-02")); err != nil {
		s.logger.Warn("cleanup reminders", "error", err)
	}
	return reminded
}
