package move

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"officemove/internal/countdown"
	appLog "officemove/internal/log"
	"officemove/internal/metrics"
)

// Tracker keeps the current announcement and re-resolves it on a cron
// schedule, so a long-running server moves on to next month's date once the
// target has passed.
type Tracker struct {
	planner *Planner
	clock   countdown.Clock

	mu      sync.RWMutex
	current Announcement

	cron *cron.Cron
}

// NewTracker plans the first announcement immediately. A nil clock means
// the system clock.
func NewTracker(p *Planner, clock countdown.Clock) (*Tracker, error) {
	if clock == nil {
		clock = countdown.SystemClock{}
	}
	t := &Tracker{planner: p, clock: clock}
	if _, err := t.Refresh(); err != nil {
		return nil, err
	}
	return t, nil
}

// Current returns the announcement at the clock's current instant.
func (t *Tracker) Current() Announcement {
	return t.At(t.clock.Now())
}

// At returns the stored announcement, re-planning first when now is past
// its target. Readers never see an occurrence that has already passed,
// whether or not the scheduled refresh has run yet.
func (t *Tracker) At(now time.Time) Announcement {
	t.mu.RLock()
	a := t.current
	t.mu.RUnlock()
	if !now.After(a.Target) {
		return a
	}

	next, err := t.planner.Plan(now)
	if err != nil {
		appLog.Error("move target re-plan failed", err)
		return a
	}
	t.store(next)
	return next
}

// Planner returns the planner backing the tracker.
func (t *Tracker) Planner() *Planner {
	return t.planner
}

// Clock returns the tracker's clock.
func (t *Tracker) Clock() countdown.Clock {
	return t.clock
}

// Refresh re-plans at the clock's current instant and reports whether the
// target changed.
func (t *Tracker) Refresh() (bool, error) {
	a, err := t.planner.Plan(t.clock.Now())
	if err != nil {
		return false, err
	}

	return t.store(a), nil
}

// store replaces the current announcement and reports whether the target
// changed.
func (t *Tracker) store(a Announcement) bool {
	t.mu.Lock()
	prev := t.current.Target
	changed := !a.Target.Equal(prev)
	t.current = a
	t.mu.Unlock()

	if changed {
		metrics.TargetRefreshes.Inc()
		appLog.Info("move target resolved",
			"target", a.Target.Format(time.RFC3339),
			"previous", prev.Format(time.RFC3339),
			"label", a.Label,
		)
	}
	return changed
}

// Start schedules Refresh with the given cron spec (standard five fields or
// a descriptor such as "@every 1m").
func (t *Tracker) Start(spec string) error {
	loc := t.planner.Rule.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, t.refreshJob); err != nil {
		return err
	}

	t.mu.Lock()
	t.cron = c
	t.mu.Unlock()

	c.Start()
	appLog.Info("move tracker started", "refresh", spec, "timezone", loc.String())
	return nil
}

// Stop halts the schedule and waits for a running refresh, or until ctx ends.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	c := t.cron
	t.cron = nil
	t.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

func (t *Tracker) refreshJob() {
	if _, err := t.Refresh(); err != nil {
		appLog.Error("move target refresh failed", err)
	}
}
