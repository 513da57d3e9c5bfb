// Package memory is an in-process goal store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"savings/internal/core"
	"savings/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.SavingsGoal
	// seq breaks created_at ties so listing stays deterministic.
	seq   map[string]int
	next  int
	fails error
}

func New(seed ...core.SavingsGoal) *Store {
	s := &Store{items: map[string]core.SavingsGoal{}, seq: map[string]int{}}
	for _, g := range seed {
		s.put(g)
	}
	return s
}

// FailWith makes every subsequent call return err until cleared with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = err
}

func (s *Store) put(g core.SavingsGoal) {
	if _, ok := s.seq[g.ID]; !ok {
		s.next++
		s.seq[g.ID] = s.next
	}
	s.items[g.ID] = g
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return nil, s.fails
	}
	out := []core.SavingsGoal{}
	for _, g := range s.items {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, ownerID, id string) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return core.SavingsGoal{}, s.fails
	}
	g, ok := s.items[id]
	if !ok || g.OwnerID != ownerID {
		return core.SavingsGoal{}, storage.ErrNoRecord
	}
	return g, nil
}

func (s *Store) Insert(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return s.fails
	}
	s.put(g)
	return nil
}

func (s *Store) Update(_ context.Context, ownerID, id string, p core.Patch, updatedAt time.Time) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return core.SavingsGoal{}, s.fails
	}
	g, ok := s.items[id]
	if !ok || g.OwnerID != ownerID {
		return core.SavingsGoal{}, storage.ErrNoRecord
	}
	g = p.Apply(g)
	g.UpdatedAt = updatedAt
	s.items[id] = g
	return g, nil
}

func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return s.fails
	}
	g, ok := s.items[id]
	if !ok || g.OwnerID != ownerID {
		return storage.ErrNoRecord
	}
	delete(s.items, id)
	delete(s.seq, id)
	return nil
}

// Len reports the number of stored goals across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
