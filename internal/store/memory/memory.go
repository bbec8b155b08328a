package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"expensechat/internal/core"
	"expensechat/internal/store"
)

// Store keeps expenses in process memory. It backs tests and the memory
// data backend; contents are lost on restart.
type Store struct {
	mu       sync.Mutex
	items    []core.Expense
	exported map[int64]bool
	now      func() time.Time
}

func New() *Store {
	return &Store{exported: map[int64]bool{}, now: time.Now}
}

// Insert validates e, assigns the next ID and stores it.
func (s *Store) Insert(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.items) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	s.items = append(s.items, e)
	return e.ID, nil
}

// Query returns matching records ordered by date, then ID.
func (s *Store) Query(_ context.Context, f store.Filter) ([]core.Expense, error) {
	s.mu.Lock()
	var out []core.Expense
	for _, e := range s.items {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	s.mu.Unlock()
	sortByDate(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.items)) {
		return core.Expense{}, core.ErrNotFound
	}
	return s.items[id-1], nil
}

// Version is the owner's highest record ID, 0 when they have none.
func (s *Store) Version(_ context.Context, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v int64
	for _, e := range s.items {
		if e.Owner == owner && e.ID > v {
			v = e.ID
		}
	}
	return v, nil
}

// PendingExport returns up to limit records not yet marked exported, oldest first.
func (s *Store) PendingExport(_ context.Context, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !s.exported[e.ID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.items)) {
		return core.ErrNotFound
	}
	s.exported[id] = true
	return nil
}

func (s *Store) IsExported(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.items)) {
		return false, core.ErrNotFound
	}
	return s.exported[id], nil
}

func (s *Store) Ping(context.Context) error { return nil }

func sortByDate(items []core.Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.Before(items[j].Date.Time)
		}
		return items[i].ID < items[j].ID
	})
}
