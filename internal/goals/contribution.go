package goals

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/cache"
	"savings/internal/core"
)

// Invalidator is the cache side of a successful write.
type Invalidator interface {
	Invalidate(ownerID string) *cache.Refresh
}

// ContributionResult is the outcome of AddFunds.
type ContributionResult struct {
	Goal     core.SavingsGoal
	Metrics  core.Metrics
	Previous decimal.Decimal
	Outcome  core.Outcome
}

// Event returns the kind of event the contribution emitted.
func (r ContributionResult) Event() EventKind {
	if r.Outcome == core.OutcomeAchieved {
		return EventAchieved
	}
	return EventUpdated
}

// Orchestrator sequences "add funds": validate, read the stored goal,
// persist the new balance, classify the crossing, notify, invalidate.
type Orchestrator struct {
	client   *Client
	notifier Notifier
	cache    Invalidator
	now      func() time.Time
}

func NewOrchestrator(client *Client, notifier Notifier, cache Invalidator) *Orchestrator {
	return &Orchestrator{
		client:   client,
		notifier: notifier,
		cache:    cache,
		now:      time.Now,
	}
}

// AddFunds adds amount to the goal's current balance. The balance is not
// clamped to the target. Exactly one event is emitted per successful call:
// EventAchieved if this contribution completed the goal, EventUpdated
// otherwise. Nothing is written or emitted when validation or the write fails.
func (o *Orchestrator) AddFunds(ctx context.Context, id string, amount decimal.Decimal) (ContributionResult, error) {
	c := core.Contribution{Amount: amount}
	if err := c.Validate(); err != nil {
		return ContributionResult{}, err
	}
	if err := validateID(id); err != nil {
		return ContributionResult{}, err
	}
	owner, err := o.client.Owner(ctx)
	if err != nil {
		return ContributionResult{}, err
	}

	// The stored record is authoritative, not the caller's snapshot.
	before, err := o.client.get(ctx, owner, id)
	if err != nil {
		return ContributionResult{}, err
	}
	newAmount, outcome := c.Apply(before)
	if err := core.ValidateAmount(newAmount); err != nil {
		return ContributionResult{}, fmt.Errorf("new balance of goal %s: %w", id, err)
	}

	after, err := o.client.contribute(ctx, owner, id, newAmount)
	if err != nil {
		return ContributionResult{}, err
	}

	res := ContributionResult{
		Goal:     after,
		Metrics:  after.Metrics(o.now()),
		Previous: before.CurrentAmount,
		Outcome:  outcome,
	}
	notify(ctx, o.notifier, Event{
		Kind:         res.Event(),
		Goal:         after,
		Contribution: amount,
		OccurredAt:   after.UpdatedAt,
	})
	syncCollection(ctx, o.cache, owner)
	return res, nil
}
