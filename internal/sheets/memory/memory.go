// Package memory is an in-process achievement ledger.
package memory

import (
	"context"
	"fmt"
	"sync"

	"savings/internal/sheets"
)

type Ledger struct {
	mu   sync.Mutex
	rows []sheets.Achievement
}

func New() *Ledger {
	return &Ledger{}
}

// AppendAchievement stores a and returns a synthetic row reference.
func (l *Ledger) AppendAchievement(_ context.Context, a sheets.Achievement) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, a)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

func (l *Ledger) ListAchievements(_ context.Context) ([]sheets.Achievement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.Achievement(nil), l.rows...), nil
}
