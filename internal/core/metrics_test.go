package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// noon keeps day arithmetic away from midnight boundaries.
var noon = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func goalWith(current, target string, deadline Date) SavingsGoal {
	return SavingsGoal{
		ID:            "g1",
		OwnerID:       "u1",
		Name:          "Bike",
		CurrentAmount: decimal.RequireFromString(current),
		TargetAmount:  decimal.RequireFromString(target),
		Deadline:      deadline,
	}
}

func TestComputeMetricsProgress(t *testing.T) {
	deadline := DateOf(noon).AddDays(30)
	tests := []struct {
		name    string
		current string
		target  string
		want    int
	}{
		{"empty", "0", "100", 0},
		{"partial", "25", "100", 25},
		{"rounds half up", "12.5", "100", 13},
		{"rounds down", "33.3", "100", 33},
		{"exactly achieved", "100", "100", 100},
		{"overshoot clamped", "105", "100", 100},
		{"zero target", "10", "0", 100},
		{"negative target", "0", "-5", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(goalWith(tt.current, tt.target, deadline), noon)
			if m.ProgressPercent != tt.want {
				t.Errorf("ProgressPercent = %d, want %d", m.ProgressPercent, tt.want)
			}
			if m.ProgressPercent < 0 || m.ProgressPercent > 100 {
				t.Errorf("ProgressPercent %d outside [0,100]", m.ProgressPercent)
			}
		})
	}
}

func TestComputeMetricsRemainingAndAchieved(t *testing.T) {
	deadline := DateOf(noon).AddDays(5)

	m := ComputeMetrics(goalWith("90", "100", deadline), noon)
	if !m.RemainingAmount.Equal(decimal.NewFromInt(10)) || m.IsAchieved {
		t.Fatalf("unexpected metrics %+v", m)
	}

	m = ComputeMetrics(goalWith("105", "100", deadline), noon)
	if !m.RemainingAmount.Equal(decimal.NewFromInt(-5)) || !m.IsAchieved {
		t.Fatalf("overshoot should be preserved: %+v", m)
	}
}

func TestComputeMetricsDeadline(t *testing.T) {
	today := DateOf(noon)
	tests := []struct {
		name        string
		deadline    Date
		current     string
		wantDays    int
		wantOverdue bool
	}{
		{"ten days ahead", today.AddDays(10), "0", 10, false},
		{"tomorrow", today.AddDays(1), "0", 1, false},
		{"today", today, "0", 0, false},
		{"yesterday", today.AddDays(-1), "0", -1, true},
		{"yesterday but achieved", today.AddDays(-1), "100", -1, false},
		{"last month", today.AddDays(-30), "50", -30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(goalWith(tt.current, "100", tt.deadline), noon)
			if m.DaysLeft != tt.wantDays {
				t.Errorf("DaysLeft = %d, want %d", m.DaysLeft, tt.wantDays)
			}
			if m.IsOverdue != tt.wantOverdue {
				t.Errorf("IsOverdue = %v, want %v", m.IsOverdue, tt.wantOverdue)
			}
		})
	}
}

func TestDaysUntilDistantDeadlines(t *testing.T) {
	midnight := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		deadline Date
		now      time.Time
		want     int
	}{
		{"year 2400", NewDate(2400, 1, 1), noon, 136310},
		{"year 9999", NewDate(9999, 12, 31), noon, 2912152},
		{"year 1700", NewDate(1700, 1, 1), noon, -119359},
		{"year 1", NewDate(1, 1, 1), noon, -739906},
		{"tomorrow from midnight", NewDate(2026, 10, 19), midnight, 1},
		{"today from midnight", NewDate(2026, 10, 18), midnight, 0},
		{"today just after midnight", NewDate(2026, 10, 18), midnight.Add(time.Nanosecond), 0},
		{"yesterday just after midnight", NewDate(2026, 10, 17), midnight.Add(time.Nanosecond), -1},
		{"tomorrow just before midnight", NewDate(2026, 10, 19), midnight.Add(-time.Nanosecond), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := daysUntil(tt.deadline, tt.now); got != tt.want {
				t.Errorf("daysUntil() = %d, want %d", got, tt.want)
			}
		})
	}

	m := ComputeMetrics(goalWith("0", "100", NewDate(1700, 1, 1)), noon)
	if !m.IsOverdue || m.DaysLeft != -119359 {
		t.Errorf("far past metrics = %+v", m)
	}
}

func TestComputeMetricsIsPure(t *testing.T) {
	g := goalWith("42.42", "250", DateOf(noon).AddDays(3))
	before := g
	first := ComputeMetrics(g, noon)
	second := ComputeMetrics(g, noon)
	if first.ProgressPercent != second.ProgressPercent ||
		!first.RemainingAmount.Equal(second.RemainingAmount) ||
		first.DaysLeft != second.DaysLeft ||
		first.IsAchieved != second.IsAchieved ||
		first.IsOverdue != second.IsOverdue {
		t.Fatalf("metrics differ between calls: %+v vs %+v", first, second)
	}
	if !g.CurrentAmount.Equal(before.CurrentAmount) || g.Name != before.Name {
		t.Fatalf("goal mutated by ComputeMetrics")
	}
	if g.Metrics(noon).ProgressPercent != first.ProgressPercent {
		t.Fatalf("method and function disagree")
	}
}
