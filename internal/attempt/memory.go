package attempt

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemStore is an in-process [Store]. Attempts are lost on restart.
type MemStore struct {
	now func() time.Time

	mu    sync.RWMutex
	byID  map[string]Attempt
	order []string // insertion order, oldest first
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{now: time.Now, byID: make(map[string]Attempt)}
}

// Create implements [Store].
func (s *MemStore) Create(_ context.Context, a *Attempt) error {
	if err := prepare(a, s.now); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("attempt: attempt with id %q already exists", a.ID)
	}
	s.byID[a.ID] = clone(*a)
	s.order = append(s.order, a.ID)
	return nil
}

// Get implements [Store].
func (s *MemStore) Get(_ context.Context, id string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	c := clone(a)
	return &c, nil
}

// List implements [Store].
func (s *MemStore) List(_ context.Context, limit int) ([]Attempt, error) {
	limit = clampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Attempt, 0, min(limit, len(s.order)))
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(s.byID[s.order[i]]))
	}
	return out, nil
}

// clone copies the slices so callers cannot mutate stored attempts.
func clone(a Attempt) Attempt {
	a.Words = slices.Clone(a.Words)
	a.Feedback.Tips = slices.Clone(a.Feedback.Tips)
	return a
}
