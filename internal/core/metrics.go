package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

const secondsPerDay = 24 * 60 * 60

// Metrics holds the values derived from a goal. They are never stored.
type Metrics struct {
	ProgressPercent int             `json:"progress_percent"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	DaysLeft        int             `json:"days_left"`
	IsAchieved      bool            `json:"is_achieved"`
	IsOverdue       bool            `json:"is_overdue"`
}

// ComputeMetrics derives progress, remaining amount, days to deadline and
// achievement status from g as seen at instant now. It is pure and total:
// a degenerate target (<= 0) reports 100% progress, and progress is always
// within [0, 100] even when the current amount overshoots the target.
func ComputeMetrics(g SavingsGoal, now time.Time) Metrics {
	achieved := g.IsAchieved()
	days := daysUntil(g.Deadline, now)
	return Metrics{
		ProgressPercent: progressPercent(g.CurrentAmount, g.TargetAmount),
		RemainingAmount: g.TargetAmount.Sub(g.CurrentAmount),
		DaysLeft:        days,
		IsAchieved:      achieved,
		IsOverdue:       days < 0 && !achieved,
	}
}

func progressPercent(current, target decimal.Decimal) int {
	if !target.IsPositive() {
		return 100
	}
	ratio := current.Div(target)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	if ratio.IsNegative() {
		ratio = decimal.Zero
	}
	return int(ratio.Mul(hundred).Round(0).IntPart())
}

// daysUntil returns ceil((deadline - now) / 24h); the deadline counts from
// UTC midnight of its calendar day.
// Whole seconds are used since a time.Duration saturates at about 292 years.
func daysUntil(deadline Date, now time.Time) int {
	secs := deadline.Unix() - now.Unix()
	nanos := deadline.Nanosecond() - now.Nanosecond()
	if nanos < 0 {
		secs--
		nanos += int(time.Second)
	}
	days := secs / secondsPerDay
	rem := secs % secondsPerDay
	if rem < 0 {
		days--
		rem += secondsPerDay
	}
	if rem > 0 || nanos > 0 {
		days++
	}
	return int(days)
}
