package memory

import (
	"context"
	"testing"

	"savings/internal/sheets"
)

func TestLedgerAppendAndList(t *testing.T) {
	l := New()
	ref, err := l.AppendAchievement(context.Background(), sheets.Achievement{GoalID: "g-1", Name: "Trip"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	rows, err := l.ListAchievements(context.Background())
	if err != nil || len(rows) != 1 || rows[0].GoalID != "g-1" {
		t.Fatalf("unexpected list: %v %v", rows, err)
	}
}
