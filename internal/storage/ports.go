// Package storage holds the goal record stores. Every query is scoped to the
// owner: a record that exists under another identity is reported as missing.
package storage

import (
	"context"
	"errors"
	"time"

	"savings/internal/core"
)

// ErrNoRecord is returned when no goal matches the given id and owner.
var ErrNoRecord = errors.New("no matching goal record")

type (
	// GoalRecords is the persistent store of savings goals.
	GoalRecords interface {
		// ListByOwner returns the owner's goals, most recently created first.
		ListByOwner(ctx context.Context, ownerID string) ([]core.SavingsGoal, error)
		Get(ctx context.Context, ownerID, id string) (core.SavingsGoal, error)
		Insert(ctx context.Context, g core.SavingsGoal) error
		// Update applies p to the goal matching id and owner and returns the stored row.
		Update(ctx context.Context, ownerID, id string, p core.Patch, updatedAt time.Time) (core.SavingsGoal, error)
		Delete(ctx context.Context, ownerID, id string) error
	}

	// Pinger is implemented by stores that can report their reachability.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
