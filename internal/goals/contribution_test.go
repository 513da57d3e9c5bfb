package goals

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"savings/internal/cache"
	"savings/internal/core"
	"savings/internal/identity"
	"savings/internal/storage/memory"
)

func TestAddFundsCrossingFiresOnce(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice")
	g := mustCreate(t, f, ctx, newGoal("Trip", "90", "100"))

	res, err := f.svc.AddFunds(ctx, g.ID, amount("15"))
	if err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	if res.Outcome != core.OutcomeAchieved || res.Event() != EventAchieved {
		t.Fatalf("outcome = %v, want achieved", res.Outcome)
	}
	if !res.Goal.CurrentAmount.Equal(amount("105")) || !res.Previous.Equal(amount("90")) {
		t.Errorf("balance %s (was %s), want 105 (was 90)", res.Goal.CurrentAmount, res.Previous)
	}
	if res.Metrics.ProgressPercent != 100 || !res.Metrics.IsAchieved {
		t.Errorf("metrics = %+v", res.Metrics)
	}

	res, err = f.svc.AddFunds(ctx, g.ID, amount("5"))
	if err != nil {
		t.Fatalf("second AddFunds() error = %v", err)
	}
	if res.Outcome != core.OutcomeUpdated {
		t.Errorf("second outcome = %v, want updated", res.Outcome)
	}
	if !res.Goal.CurrentAmount.Equal(amount("110")) {
		t.Errorf("overshoot clamped: %s", res.Goal.CurrentAmount)
	}

	if n := f.events.Count(EventAchieved); n != 1 {
		t.Errorf("achieved events = %d, want 1", n)
	}
	if n := f.events.Count(EventUpdated); n != 1 {
		t.Errorf("updated events = %d, want 1", n)
	}
	last := f.events.Events()[len(f.events.Events())-1]
	if !last.Contribution.Equal(amount("5")) || last.Goal.ID != g.ID {
		t.Errorf("last event = %+v", last)
	}
}

func TestAddFundsBelowTarget(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice")
	g := mustCreate(t, f, ctx, newGoal("Trip", "0", "100"))

	for i := 0; i < 3; i++ {
		res, err := f.svc.AddFunds(ctx, g.ID, amount("20.50"))
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != core.OutcomeUpdated {
			t.Fatalf("contribution %d outcome = %v", i, res.Outcome)
		}
	}
	got, _ := f.svc.Get(ctx, g.ID)
	if !got.CurrentAmount.Equal(amount("61.50")) || got.Metrics.ProgressPercent != 62 {
		t.Errorf("goal = %s at %d%%", got.CurrentAmount, got.Metrics.ProgressPercent)
	}
}

func TestAddFundsVisibleInNextList(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice")
	g := mustCreate(t, f, ctx, newGoal("Trip", "10", "100"))
	if _, err := f.svc.List(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddFunds(ctx, g.ID, amount("40")); err != nil {
		t.Fatal(err)
	}
	col, err := f.svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !col.Goals[0].CurrentAmount.Equal(amount("50")) || col.Goals[0].Metrics.ProgressPercent != 50 {
		t.Errorf("listed goal = %+v", col.Goals[0])
	}
}

func TestAddFundsRejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice")
	g := mustCreate(t, f, ctx, newGoal("Trip", "10", "100"))
	writes := f.store.writes.Load()
	events := len(f.events.Events())

	for _, a := range []string{"0", "-5", "-0.01"} {
		if _, err := f.svc.AddFunds(ctx, g.ID, amount(a)); !errors.Is(err, core.ErrValidation) {
			t.Errorf("AddFunds(%s) error = %v, want validation error", a, err)
		}
	}
	if f.store.writes.Load() != writes {
		t.Error("rejected contribution reached the store")
	}
	if len(f.events.Events()) != events {
		t.Error("rejected contribution emitted an event")
	}
	got, _ := f.svc.Get(ctx, g.ID)
	if !got.CurrentAmount.Equal(amount("10")) {
		t.Errorf("balance changed to %s", got.CurrentAmount)
	}
}

func TestAddFundsRejectsBalanceOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice")
	g := mustCreate(t, f, ctx, newGoal("Fortune", "999999999999.00", "999999999999.99"))
	writes := f.store.writes.Load()
	events := len(f.events.Events())

	if _, err := f.svc.AddFunds(ctx, g.ID, amount("1")); !errors.Is(err, core.ErrAmountTooLarge) {
		t.Fatalf("AddFunds() error = %v, want ErrAmountTooLarge", err)
	}
	if f.store.writes.Load() != writes || len(f.events.Events()) != events {
		t.Error("overflowing contribution reached the store or emitted an event")
	}
	if _, err := f.svc.AddFunds(ctx, g.ID, amount("0.99")); err != nil {
		t.Errorf("AddFunds() up to the limit error = %v", err)
	}
}

func TestAddFundsStoreFailureEmitsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := as("alice")
	g := mustCreate(t, f, ctx, newGoal("Trip", "90", "100"))
	events := len(f.events.Events())

	f.mem.FailWith(errors.New("broken pipe"))
	if _, err := f.svc.AddFunds(ctx, g.ID, amount("20")); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("AddFunds() error = %v, want ErrStoreUnavailable", err)
	}
	if len(f.events.Events()) != events {
		t.Error("failed contribution emitted an event")
	}
}

func TestAddFundsUnknownGoal(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.AddFunds(as("alice"), "missing", amount("1")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("AddFunds() error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.AddFunds(context.Background(), "missing", amount("1")); !errors.Is(err, core.ErrUnauthenticated) {
		t.Errorf("AddFunds() without session error = %v, want ErrUnauthenticated", err)
	}
}

func TestNotifierFailureDoesNotFailContribution(t *testing.T) {
	mem := memory.New()
	failing := NotifierFunc(func(context.Context, Event) error { return errors.New("circuit breaker is open") })
	rec := &Recorder{}
	svc := NewService(mem, identity.ContextProvider{}, Notifiers{failing, rec}, cache.Options{})
	ctx := as("alice")

	g, err := svc.Create(ctx, newGoal("Trip", "0", "10"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	res, err := svc.AddFunds(ctx, g.ID, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	if res.Outcome != core.OutcomeAchieved {
		t.Errorf("outcome = %v", res.Outcome)
	}
	if rec.Count(EventAchieved) != 1 {
		t.Errorf("healthy notifier got %d achieved events", rec.Count(EventAchieved))
	}
}

func TestOrchestratorWithoutCache(t *testing.T) {
	mem := memory.New()
	client := NewClient(mem, identity.Static("alice"))
	rec := &Recorder{}
	o := NewOrchestrator(client, rec, nil)

	g, err := client.Create(context.Background(), newGoal("Trip", "0", "10"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.AddFunds(context.Background(), g.ID, amount("3")); err != nil {
		t.Fatalf("AddFunds() error = %v", err)
	}
	if rec.Count(EventUpdated) != 1 {
		t.Errorf("updated events = %d", rec.Count(EventUpdated))
	}
}
