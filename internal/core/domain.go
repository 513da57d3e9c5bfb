package core

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// MaxNameLength bounds the goal display label.
const MaxNameLength = 200

type (
	// Date is a calendar day, always normalized to UTC midnight.
	Date struct {
		time.Time
	}

	// SavingsGoal is a named savings target owned by exactly one identity.
	SavingsGoal struct {
		ID            string          `json:"id"`
		OwnerID       string          `json:"owner_id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		Deadline      Date            `json:"deadline"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	// NewGoal carries the caller-supplied fields of a goal being created.
	// Identity and timestamps are assigned by the engine.
	NewGoal struct {
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		Deadline      Date            `json:"deadline"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Unparsable input is a validation error.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDeadline
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n calendar days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDeadline
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDeadline
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func validateTarget(target decimal.Decimal) error {
	if !target.IsPositive() {
		return ErrInvalidTarget
	}
	return ValidateAmount(target)
}

// Validate checks the creation input. A zero starting amount is allowed.
func (g NewGoal) Validate() error {
	if err := validateName(g.Name); err != nil {
		return err
	}
	if err := validateTarget(g.TargetAmount); err != nil {
		return err
	}
	if g.CurrentAmount.IsNegative() {
		return ErrNegativeCurrent
	}
	if err := ValidateAmount(g.CurrentAmount); err != nil {
		return err
	}
	return g.Deadline.Validate()
}

// Normalize trims the name.
func (g NewGoal) Normalize() NewGoal {
	g.Name = strings.TrimSpace(g.Name)
	return g
}

// IsAchieved reports whether the contributed amount reached the target.
func (g SavingsGoal) IsAchieved() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Metrics derives the display values of g at instant now.
func (g SavingsGoal) Metrics(now time.Time) Metrics {
	return ComputeMetrics(g, now)
}
