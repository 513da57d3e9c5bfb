// Package sheets defines the achievement ledger kept in a spreadsheet.
package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

// Achievement is one ledger row: a goal that reached its target.
type Achievement struct {
	GoalID     string
	OwnerID    string
	Name       string
	Target     decimal.Decimal
	Reached    decimal.Decimal
	Deadline   core.Date
	AchievedAt time.Time
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendAchievement(ctx context.Context, a Achievement) (rowRef string, err error)
	}

	LedgerReader interface {
		// ListAchievements returns every recorded achievement in sheet order.
		ListAchievements(ctx context.Context) ([]Achievement, error)
	}

	Ledger interface {
		LedgerWriter
		LedgerReader
	}
)
