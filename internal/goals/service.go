package goals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/cache"
	"savings/internal/core"
	"savings/internal/identity"
	"savings/internal/log"
	"savings/internal/storage"
)

// GoalStatus is a stored goal together with its derived display values.
type GoalStatus struct {
	core.SavingsGoal
	Metrics core.Metrics `json:"metrics"`
}

// Collection is the caller's goal list as seen through the cache.
type Collection struct {
	Goals []GoalStatus
	// Loading is set while a refetch is in flight; Goals hold the last
	// known list meanwhile.
	Loading bool
	// Err is the failure of the latest refetch, if any.
	Err       error
	FetchedAt time.Time
}

// Service is the engine entry point used by the HTTP API and the CLI. Every
// successful write invalidates the caller's cached collection and waits for
// the refetch, so the next List reflects the write.
type Service struct {
	client       *Client
	orchestrator *Orchestrator
	collections  *cache.Store[core.SavingsGoal]
	notifier     Notifier
	records      storage.GoalRecords
	now          func() time.Time
}

func NewService(records storage.GoalRecords, provider identity.Provider, notifier Notifier, opts cache.Options) *Service {
	client := NewClient(records, provider)
	collections := cache.NewStore(func(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
		return client.listOwner(ctx, owner)
	}, opts)

	return &Service{
		client:       client,
		orchestrator: NewOrchestrator(client, notifier, collections),
		collections:  collections,
		notifier:     notifier,
		records:      records,
		now:          time.Now,
	}
}

// Collections exposes the cache so it can be registered for idle cleanup.
func (s *Service) Collections() *cache.Store[core.SavingsGoal] {
	return s.collections
}

// List returns the caller's goals with metrics derived at the current instant.
func (s *Service) List(ctx context.Context) (Collection, error) {
	owner, err := s.client.Owner(ctx)
	if err != nil {
		return Collection{}, err
	}
	snap, err := s.collections.Load(ctx, owner)
	if err != nil && !snap.Loaded {
		return Collection{}, err
	}

	now := s.now()
	out := Collection{
		Goals:     make([]GoalStatus, 0, len(snap.Items)),
		Loading:   snap.Loading,
		Err:       snap.Err,
		FetchedAt: snap.FetchedAt,
	}
	for _, g := range snap.Items {
		out.Goals = append(out.Goals, GoalStatus{SavingsGoal: g, Metrics: g.Metrics(now)})
	}
	return out, nil
}

// Get reads one goal from the store, bypassing the collection cache.
func (s *Service) Get(ctx context.Context, id string) (GoalStatus, error) {
	g, err := s.client.Get(ctx, id)
	if err != nil {
		return GoalStatus{}, err
	}
	return s.status(g), nil
}

func (s *Service) Create(ctx context.Context, in core.NewGoal) (GoalStatus, error) {
	g, err := s.client.Create(ctx, in)
	if err != nil {
		return GoalStatus{}, err
	}
	notify(ctx, s.notifier, Event{Kind: EventCreated, Goal: g, OccurredAt: g.CreatedAt})
	syncCollection(ctx, s.collections, g.OwnerID)
	return s.status(g), nil
}

func (s *Service) Update(ctx context.Context, id string, edits ...core.Edit) (GoalStatus, error) {
	g, err := s.client.Update(ctx, id, edits...)
	if err != nil {
		return GoalStatus{}, err
	}
	notify(ctx, s.notifier, Event{Kind: EventUpdated, Goal: g, OccurredAt: g.UpdatedAt})
	syncCollection(ctx, s.collections, g.OwnerID)
	return s.status(g), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	owner, err := s.client.Owner(ctx)
	if err != nil {
		return err
	}
	if err := s.client.delete(ctx, owner, id); err != nil {
		return err
	}
	notify(ctx, s.notifier, Event{
		Kind:       EventDeleted,
		Goal:       core.SavingsGoal{ID: id, OwnerID: owner},
		OccurredAt: s.now().UTC(),
	})
	syncCollection(ctx, s.collections, owner)
	return nil
}

// AddFunds records a contribution through the Orchestrator.
func (s *Service) AddFunds(ctx context.Context, id string, amount decimal.Decimal) (ContributionResult, error) {
	return s.orchestrator.AddFunds(ctx, id, amount)
}

// EndSession tears down the caller's cached collection on sign-out.
func (s *Service) EndSession(ctx context.Context) error {
	owner, err := s.client.Owner(ctx)
	if err != nil {
		return err
	}
	s.collections.Close(owner)
	return nil
}

// Ready reports whether the record store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	p, ok := s.records.(storage.Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Shutdown waits for background refetches to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.collections.Drain(ctx)
}

func (s *Service) status(g core.SavingsGoal) GoalStatus {
	return GoalStatus{SavingsGoal: g, Metrics: g.Metrics(s.now())}
}

// notify delivers ev. Delivery failures are logged and never fail the write
// that produced the event.
func notify(ctx context.Context, n Notifier, ev Event) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, ev); err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to deliver goal event", err,
			log.ComponentGoals, log.OpNotify,
			log.NewFields().WithGoal(ev.Goal.ID, ev.Goal.OwnerID).WithEvent(string(ev.Kind)))
	}
}

// syncCollection invalidates the owner's collection and waits for the
// refetch. A failed refetch stays visible on the collection; the write that
// triggered it still succeeded.
func syncCollection(ctx context.Context, inv Invalidator, owner string) {
	if inv == nil || owner == "" {
		return
	}
	if err := inv.Invalidate(owner).Wait(ctx); err != nil && !errors.Is(err, cache.ErrClosed) {
		slog.WarnContext(ctx, "Goal collection refetch after write failed",
			log.FieldComponent, log.ComponentCache, log.FieldOwnerID, owner, log.FieldError, err)
	}
}
