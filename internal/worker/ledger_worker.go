// Package worker turns goal events from the broker into spreadsheet rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"savings/internal/amqp"
	"savings/internal/core"
	"savings/internal/sheets"
)

// LedgerWorker appends one ledger row per achieved goal. Redelivered
// messages are recognised by goal id and achievement day and skipped.
type LedgerWorker struct {
	ledger sheets.Ledger

	mu     sync.Mutex
	seen   map[string]struct{}
	loaded bool
}

func NewLedgerWorker(ledger sheets.Ledger) *LedgerWorker {
	return &LedgerWorker{ledger: ledger, seen: map[string]struct{}{}}
}

// HandleGoalEvent processes a single goal event message from AMQP.
func (w *LedgerWorker) HandleGoalEvent(ctx context.Context, msg *amqp.GoalEventMessage) error {
	if !msg.IsAchievement() {
		slog.DebugContext(ctx, "Ignoring goal event", "event", msg.Event, "goal_id", msg.GoalID)
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.loadSeen(ctx); err != nil {
		return err
	}

	at := msg.OccurredAt
	if at.IsZero() {
		at = msg.Timestamp
	}
	key := ledgerKey(msg.GoalID, at)
	if _, dup := w.seen[key]; dup {
		slog.InfoContext(ctx, "Achievement already in ledger, skipping",
			"goal_id", msg.GoalID, "achieved_at", at)
		return nil
	}

	a := sheets.Achievement{
		GoalID:     msg.GoalID,
		OwnerID:    msg.OwnerID,
		Name:       msg.Name,
		Target:     msg.TargetAmount,
		Reached:    msg.CurrentAmount,
		AchievedAt: at,
	}
	if msg.Deadline != "" {
		if d, err := core.ParseDate(msg.Deadline); err == nil {
			a.Deadline = d
		}
	}

	ref, err := w.ledger.AppendAchievement(ctx, a)
	if err != nil {
		return fmt.Errorf("append achievement: %w", err)
	}
	w.seen[key] = struct{}{}

	slog.InfoContext(ctx, "Achievement recorded",
		"goal_id", msg.GoalID,
		"owner_id", msg.OwnerID,
		"reached", core.FormatCurrency(msg.CurrentAmount),
		"sheets_ref", ref)
	return nil
}

// loadSeen reads the ledger once so restarts do not duplicate rows.
func (w *LedgerWorker) loadSeen(ctx context.Context) error {
	if w.loaded {
		return nil
	}
	rows, err := w.ledger.ListAchievements(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	for _, r := range rows {
		w.seen[ledgerKey(r.GoalID, r.AchievedAt)] = struct{}{}
	}
	w.loaded = true
	slog.InfoContext(ctx, "Ledger loaded", "rows", len(rows))
	return nil
}

func ledgerKey(goalID string, at time.Time) string {
	return goalID + "|" + at.UTC().Format(core.DateLayout)
}
