// internal/scheduler/scheduler.go

// Package scheduler runs the daily notification loop: on every tick it
// finds subscribers whose notification time has passed and who have not
// been notified today, and pushes them the current menu.
package scheduler

import (
	"context"
	"sort"
	"time"

	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
	"menubot/internal/menu"
	"menubot/internal/notify"
	"menubot/internal/subscription"
)

// MenuSource serves the rendered menu for a day.
type MenuSource interface {
	Menu(ctx context.Context, day menu.Day) (string, error)
}

// Scheduler drives scheduled notifications off a wall-clock ticker.
type Scheduler struct {
	store    subscription.Store
	menus    MenuSource
	sender   notify.Sender
	interval time.Duration
	now      func() time.Time
	logger   logger.Logger
}

// New creates a scheduler ticking at the given interval.
func New(store subscription.Store, menus MenuSource, sender notify.Sender, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		menus:    menus,
		sender:   sender,
		interval: interval,
		now:      time.Now,
		logger:   log,
	}
}

// Run blocks until ctx is cancelled, ticking at the configured interval.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("notification scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("notification scheduler stopped", nil)
			return
		case <-ticker.C:
			metrics.SchedulerTicksTotal.Inc()
			s.safeTick(ctx)
		}
	}
}

// safeTick keeps a panicking tick from taking the loop down.
func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler tick panicked", map[string]interface{}{
				"panic": r,
			})
		}
	}()
	s.tick(ctx)
}

// tick notifies every due subscriber. A failed menu fetch postpones the
// whole batch to the next tick; a failed send does not, so a flaky
// channel cannot make the relay spam retries all day.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	// The canteen is closed on weekends.
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return
	}

	today := now.Format(menu.DateLayout)
	nowMinutes := now.Hour()*60 + now.Minute()

	subs, err := s.store.All(ctx)
	if err != nil {
		s.logger.Error("failed to read subscriptions", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	due := make([]string, 0, len(subs))
	for recipient, sub := range subs {
		if sub.LastNotified != nil && *sub.LastNotified >= today {
			continue
		}
		if sub.NotifyAt.Minutes() > nowMinutes {
			continue
		}
		due = append(due, recipient)
	}
	if len(due) == 0 {
		return
	}
	sort.Strings(due)

	menuHTML, err := s.menus.Menu(ctx, menu.Today)
	if err != nil {
		s.logger.Warn("menu unavailable, postponing notifications", map[string]interface{}{
			"due":   len(due),
			"error": err.Error(),
		})
		return
	}

	for _, recipient := range due {
		if err := s.sender.Send(ctx, recipient, menuHTML); err != nil {
			metrics.RecordNotification(s.sender.Channel(), "error")
			s.logger.Error("notification send failed", map[string]interface{}{
				"recipient": recipient,
				"error":     err.Error(),
			})
			continue
		}
		metrics.RecordNotification(s.sender.Channel(), "success")
		s.logger.Info("notification sent", map[string]interface{}{
			"recipient": recipient,
		})
	}

	// Mark the whole batch, including failed sends. One attempt per day;
	// a recipient with a broken address gets retried tomorrow, not every
	// tick.
	if err := s.store.MarkNotified(ctx, due, today); err != nil {
		s.logger.Error("failed to mark notifications", map[string]interface{}{
			"date":  today,
			"error": err.Error(),
		})
	}
}
