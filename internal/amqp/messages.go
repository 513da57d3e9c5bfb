package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/goals"
)

// GoalEventMessage is the wire form of a goal event. It carries the goal as
// it was stored after the change, so consumers never read the database.
type GoalEventMessage struct {
	Event         string          `json:"event"`
	GoalID        string          `json:"goal_id"`
	OwnerID       string          `json:"owner_id"`
	Name          string          `json:"name,omitempty"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Contribution  decimal.Decimal `json:"contribution"`
	Deadline      string          `json:"deadline,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewGoalEventMessage converts a goal event into its wire form.
func NewGoalEventMessage(ev goals.Event) *GoalEventMessage {
	return &GoalEventMessage{
		Event:         string(ev.Kind),
		GoalID:        ev.Goal.ID,
		OwnerID:       ev.Goal.OwnerID,
		Name:          ev.Goal.Name,
		TargetAmount:  ev.Goal.TargetAmount,
		CurrentAmount: ev.Goal.CurrentAmount,
		Contribution:  ev.Contribution,
		Deadline:      ev.Goal.Deadline.String(),
		OccurredAt:    ev.OccurredAt,
		Timestamp:     time.Now(),
	}
}

// IsAchievement reports whether the message announces a completed goal.
func (m *GoalEventMessage) IsAchievement() bool {
	return m.Event == string(goals.EventAchieved)
}

// ToJSON converts the message to JSON bytes
func (m *GoalEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GoalEventMessageFromJSON creates a message from JSON bytes
func GoalEventMessageFromJSON(data []byte) (*GoalEventMessage, error) {
	var msg GoalEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
