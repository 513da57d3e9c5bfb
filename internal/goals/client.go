// Package goals is the savings goal engine: the store client, the
// contribution orchestrator and the cache-coherent service in front of them.
package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/identity"
	"savings/internal/storage"
)

// Client performs owner-scoped goal operations against the record store.
// Every error it returns classifies under one of the core kinds.
type Client struct {
	records  storage.GoalRecords
	identity identity.Provider
	now      func() time.Time
	newID    func() string
}

func NewClient(records storage.GoalRecords, provider identity.Provider) *Client {
	return &Client{
		records:  records,
		identity: provider,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Owner returns the user id of the current session.
func (c *Client) Owner(ctx context.Context) (string, error) {
	s, ok := c.identity.CurrentSession(ctx)
	if !ok {
		return "", core.ErrUnauthenticated
	}
	return s.UserID, nil
}

// List returns the caller's goals, most recently created first.
func (c *Client) List(ctx context.Context) ([]core.SavingsGoal, error) {
	owner, err := c.Owner(ctx)
	if err != nil {
		return nil, err
	}
	return c.listOwner(ctx, owner)
}

func (c *Client) listOwner(ctx context.Context, owner string) ([]core.SavingsGoal, error) {
	goals, err := c.records.ListByOwner(ctx, owner)
	if err != nil {
		return nil, storeError("list goals", "", err)
	}
	return goals, nil
}

// Get returns one of the caller's goals.
func (c *Client) Get(ctx context.Context, id string) (core.SavingsGoal, error) {
	owner, err := c.Owner(ctx)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return c.get(ctx, owner, id)
}

func (c *Client) get(ctx context.Context, owner, id string) (core.SavingsGoal, error) {
	if err := validateID(id); err != nil {
		return core.SavingsGoal{}, err
	}
	g, err := c.records.Get(ctx, owner, id)
	if err != nil {
		return core.SavingsGoal{}, storeError("get goal", id, err)
	}
	return g, nil
}

// Create validates in and stores a new goal owned by the caller.
func (c *Client) Create(ctx context.Context, in core.NewGoal) (core.SavingsGoal, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	owner, err := c.Owner(ctx)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	now := c.now()
	g := core.SavingsGoal{
		ID:            c.newID(),
		OwnerID:       owner,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Deadline:      in.Deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.records.Insert(ctx, g); err != nil {
		return core.SavingsGoal{}, storeError("create goal", g.ID, err)
	}
	return g, nil
}

// Update applies edits to one of the caller's goals. Edits cannot change the
// current amount; contributions go through the Orchestrator.
func (c *Client) Update(ctx context.Context, id string, edits ...core.Edit) (core.SavingsGoal, error) {
	patch, err := core.BuildPatch(edits...)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if err := validateID(id); err != nil {
		return core.SavingsGoal{}, err
	}
	owner, err := c.Owner(ctx)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return c.update(ctx, owner, id, patch)
}

func (c *Client) update(ctx context.Context, owner, id string, p core.Patch) (core.SavingsGoal, error) {
	g, err := c.records.Update(ctx, owner, id, p, c.now())
	if err != nil {
		return core.SavingsGoal{}, storeError("update goal", id, err)
	}
	return g, nil
}

// contribute stores the new balance computed by the Orchestrator.
func (c *Client) contribute(ctx context.Context, owner, id string, newAmount decimal.Decimal) (core.SavingsGoal, error) {
	return c.update(ctx, owner, id, core.Patch{CurrentAmount: &newAmount})
}

// Delete removes one of the caller's goals. Deleting a missing goal fails.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	owner, err := c.Owner(ctx)
	if err != nil {
		return err
	}
	return c.delete(ctx, owner, id)
}

func (c *Client) delete(ctx context.Context, owner, id string) error {
	if err := c.records.Delete(ctx, owner, id); err != nil {
		return storeError("delete goal", id, err)
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return core.ErrInvalidID
	}
	return nil
}

// storeError maps a record store failure onto the core error kinds.
func storeError(op, id string, err error) error {
	if errors.Is(err, storage.ErrNoRecord) {
		return fmt.Errorf("%w: goal %s", core.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrStoreUnavailable, op, err)
}
