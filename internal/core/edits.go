package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Patch lists the field changes applied to a stored goal. Nil fields are
// left untouched.
type Patch struct {
	Name          *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	Deadline      *Date
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.TargetAmount == nil && p.CurrentAmount == nil && p.Deadline == nil
}

// Apply returns g with the patch applied. Timestamps are not touched.
func (p Patch) Apply(g SavingsGoal) SavingsGoal {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.Deadline != nil {
		g.Deadline = *p.Deadline
	}
	return g
}

// Edit is one of the closed set of goal edits: Rename, Retarget, Reschedule.
// Contributions are not edits; they go through the contribution path so
// that goal completion is always detected.
type Edit interface {
	applyTo(p *Patch) error
}

type (
	// Rename changes the display label.
	Rename struct{ Name string }

	// Retarget changes the target amount.
	Retarget struct{ TargetAmount decimal.Decimal }

	// Reschedule moves the deadline.
	Reschedule struct{ Deadline Date }
)

func (e Rename) applyTo(p *Patch) error {
	name := strings.TrimSpace(e.Name)
	if err := validateName(name); err != nil {
		return err
	}
	p.Name = &name
	return nil
}

func (e Retarget) applyTo(p *Patch) error {
	if err := validateTarget(e.TargetAmount); err != nil {
		return err
	}
	target := e.TargetAmount
	p.TargetAmount = &target
	return nil
}

func (e Reschedule) applyTo(p *Patch) error {
	if err := e.Deadline.Validate(); err != nil {
		return err
	}
	deadline := e.Deadline
	p.Deadline = &deadline
	return nil
}

// BuildPatch validates edits and folds them into a single patch. Later edits
// of the same field win.
func BuildPatch(edits ...Edit) (Patch, error) {
	var p Patch
	for _, e := range edits {
		if e == nil {
			continue
		}
		if err := e.applyTo(&p); err != nil {
			return Patch{}, err
		}
	}
	if p.IsEmpty() {
		return Patch{}, ErrNoEdits
	}
	return p, nil
}

// Contribution increases a goal's current amount by a positive quantity.
type Contribution struct {
	Amount decimal.Decimal
}

func (c Contribution) Validate() error {
	if !c.Amount.IsPositive() {
		return ErrNonPositiveFunds
	}
	return ValidateAmount(c.Amount)
}

// Outcome is the classification of a contribution against the goal's target.
type Outcome int

const (
	// OutcomeUpdated: the goal's balance changed without crossing the target.
	OutcomeUpdated Outcome = iota
	// OutcomeAchieved: this contribution moved the goal from not-achieved to achieved.
	OutcomeAchieved
)

func (o Outcome) String() string {
	if o == OutcomeAchieved {
		return "achieved"
	}
	return "updated"
}

// Apply computes the new balance of g (never clamped to the target) and
// classifies the crossing edge.
func (c Contribution) Apply(g SavingsGoal) (decimal.Decimal, Outcome) {
	newAmount := g.CurrentAmount.Add(c.Amount)
	wasAchieved := g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
	isAchievedNow := newAmount.GreaterThanOrEqual(g.TargetAmount)
	if !wasAchieved && isAchievedNow {
		return newAmount, OutcomeAchieved
	}
	return newAmount, OutcomeUpdated
}
