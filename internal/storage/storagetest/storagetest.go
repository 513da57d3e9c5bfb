// Package storagetest checks that a GoalRecords implementation honours the
// store contract. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/storage"
)

var base = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

// Goal builds a valid goal created offset minutes after a fixed instant.
func Goal(owner, name string, offset int) core.SavingsGoal {
	created := base.Add(time.Duration(offset) * time.Minute)
	return core.SavingsGoal{
		ID:            uuid.NewString(),
		OwnerID:       owner,
		Name:          name,
		TargetAmount:  decimal.RequireFromString("1000.00"),
		CurrentAmount: decimal.RequireFromString("250.50"),
		Deadline:      core.NewDate(2027, 3, 31),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// Run exercises the store returned by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.GoalRecords) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		s := newStore(t)
		g := Goal("alice", "Emergency fund", 0)
		if err := s.Insert(ctx, g); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		got, err := s.Get(ctx, "alice", g.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Name != g.Name || !got.TargetAmount.Equal(g.TargetAmount) ||
			!got.CurrentAmount.Equal(g.CurrentAmount) || got.Deadline != g.Deadline ||
			!got.CreatedAt.Equal(g.CreatedAt) {
			t.Errorf("Get() = %+v, want %+v", got, g)
		}
	})

	t.Run("list is owner scoped and newest first", func(t *testing.T) {
		s := newStore(t)
		older := Goal("alice", "Bike", 0)
		newer := Goal("alice", "Trip", 5)
		foreign := Goal("bob", "Car", 10)
		for _, g := range []core.SavingsGoal{older, newer, foreign} {
			if err := s.Insert(ctx, g); err != nil {
				t.Fatalf("Insert(%s) error = %v", g.Name, err)
			}
		}
		got, err := s.ListByOwner(ctx, "alice")
		if err != nil {
			t.Fatalf("ListByOwner() error = %v", err)
		}
		if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
			t.Fatalf("ListByOwner() = %v, want [Trip Bike]", names(got))
		}
		empty, err := s.ListByOwner(ctx, "carol")
		if err != nil || len(empty) != 0 {
			t.Fatalf("ListByOwner(carol) = %v, %v; want empty", empty, err)
		}
	})

	t.Run("foreign owner sees no record", func(t *testing.T) {
		s := newStore(t)
		g := Goal("alice", "Bike", 0)
		if err := s.Insert(ctx, g); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if _, err := s.Get(ctx, "bob", g.ID); !errors.Is(err, storage.ErrNoRecord) {
			t.Errorf("Get(bob) error = %v, want ErrNoRecord", err)
		}
		name := "Hijacked"
		if _, err := s.Update(ctx, "bob", g.ID, core.Patch{Name: &name}, base); !errors.Is(err, storage.ErrNoRecord) {
			t.Errorf("Update(bob) error = %v, want ErrNoRecord", err)
		}
		if err := s.Delete(ctx, "bob", g.ID); !errors.Is(err, storage.ErrNoRecord) {
			t.Errorf("Delete(bob) error = %v, want ErrNoRecord", err)
		}
		got, _ := s.Get(ctx, "alice", g.ID)
		if got.Name != "Bike" {
			t.Errorf("goal modified by foreign owner: %+v", got)
		}
	})

	t.Run("update applies only set fields", func(t *testing.T) {
		s := newStore(t)
		g := Goal("alice", "Bike", 0)
		if err := s.Insert(ctx, g); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		amount := decimal.RequireFromString("1100.25")
		at := base.Add(time.Hour)
		got, err := s.Update(ctx, "alice", g.ID, core.Patch{CurrentAmount: &amount}, at)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !got.CurrentAmount.Equal(amount) || got.Name != "Bike" || !got.TargetAmount.Equal(g.TargetAmount) {
			t.Errorf("Update() = %+v", got)
		}
		if !got.UpdatedAt.Equal(at) || !got.CreatedAt.Equal(g.CreatedAt) {
			t.Errorf("timestamps: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
		}
		reread, _ := s.Get(ctx, "alice", g.ID)
		if !reread.CurrentAmount.Equal(amount) {
			t.Errorf("stored current = %s, want %s", reread.CurrentAmount, amount)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		g := Goal("alice", "Bike", 0)
		if err := s.Insert(ctx, g); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if err := s.Delete(ctx, "alice", g.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "alice", g.ID); !errors.Is(err, storage.ErrNoRecord) {
			t.Errorf("Get after delete error = %v, want ErrNoRecord", err)
		}
		if err := s.Delete(ctx, "alice", g.ID); !errors.Is(err, storage.ErrNoRecord) {
			t.Errorf("second Delete() error = %v, want ErrNoRecord", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "alice", uuid.NewString()); !errors.Is(err, storage.ErrNoRecord) {
			t.Errorf("Get(unknown) error = %v, want ErrNoRecord", err)
		}
	})
}

func names(goals []core.SavingsGoal) []string {
	out := make([]string, len(goals))
	for i, g := range goals {
		out[i] = g.Name
	}
	return out
}
