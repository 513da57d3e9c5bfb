package goals

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/log"
)

// EventKind names a goal lifecycle event.
type EventKind string

const (
	EventCreated EventKind = "goal.created"
	// EventUpdated follows an edit or a contribution that did not complete the goal.
	EventUpdated EventKind = "goal.updated"
	// EventAchieved is emitted once, by the contribution that crossed the target.
	EventAchieved EventKind = "goal.achieved"
	EventDeleted  EventKind = "goal.deleted"
)

// Event describes a goal change that has been persisted.
type Event struct {
	Kind EventKind
	// Goal is the stored goal after the change; for deletions only ID and
	// OwnerID are set.
	Goal core.SavingsGoal
	// Contribution is the amount added, zero for non-contribution events.
	Contribution decimal.Decimal
	OccurredAt   time.Time
}

// Notifier delivers goal events to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Notifiers fans an event out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes every event to the structured log. A nil Logger uses
// the logger carried by ctx.
type LogNotifier struct {
	Logger *log.StructuredLogger
}

func (n LogNotifier) Notify(ctx context.Context, ev Event) error {
	sl := n.Logger
	if sl == nil {
		sl = log.NewStructuredLogger(log.FromContext(ctx))
	}
	fields := log.NewFields()
	if ev.Kind != EventDeleted {
		fields.WithAmounts(ev.Contribution.String(), ev.Goal.CurrentAmount.String(), ev.Goal.TargetAmount.String())
	}
	sl.LogGoalEvent(ctx, string(ev.Kind), ev.Goal.ID, ev.Goal.OwnerID, fields)
	return nil
}

// Recorder keeps delivered events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events in delivery order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
