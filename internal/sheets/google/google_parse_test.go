package google

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLedger(t *testing.T) {
	values := [][]interface{}{
		{"Achieved", "Goal", "Target", "Reached", "Deadline", "Goal ID", "Owner"},
		{"2026-10-18", "Trip", "100.00", "105.00", "2027-06-01", "g-1", "alice"},
		{},
		{"2026-10-19", "Bike", "$1,200.00", "1200", "", "g-2", "bob"},
	}

	got, err := parseLedger(values)
	if err != nil {
		t.Fatalf("parseLedger() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parseLedger() returned %d rows, want 2", len(got))
	}
	if got[0].GoalID != "g-1" || got[0].OwnerID != "alice" || !got[0].Reached.Equal(decimal.RequireFromString("105")) {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[0].Deadline.String() != "2027-06-01" || got[0].AchievedAt.Day() != 18 {
		t.Errorf("row 0 dates = %v / %v", got[0].Deadline, got[0].AchievedAt)
	}
	if !got[1].Target.Equal(decimal.RequireFromString("1200")) || !got[1].Deadline.IsZero() {
		t.Errorf("row 1 = %+v", got[1])
	}
}

func TestParseLedgerErrors(t *testing.T) {
	tests := map[string][][]interface{}{
		"bad header": {{"Date", "Name"}},
		"bad date":   {{"Achieved", "Goal", "Target", "Reached", "Deadline", "Goal ID"}, {"yesterday", "x", "1", "1", "", "g"}},
		"bad amount": {{"Achieved", "Goal", "Target", "Reached", "Deadline", "Goal ID"}, {"2026-01-01", "x", "lots", "1", "", "g"}},
	}
	for name, values := range tests {
		if _, err := parseLedger(values); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if got, err := parseLedger(nil); err != nil || len(got) != 0 {
		t.Errorf("empty sheet: %v, %v", got, err)
	}
}
