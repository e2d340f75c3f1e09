// Package memory is an in-process transaction store with the same
// observable behavior as the SQLite repository. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"finance/internal/core"
	"finance/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{nextID: 1}
}

// NewWithSeed returns a store pre-populated with txs. Their IDs are
// reassigned in order.
func NewWithSeed(txs []core.Transaction) (*Store, error) {
	s := New()
	for _, tx := range txs {
		if _, err := s.Insert(context.Background(), tx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Insert stores the transaction and returns its id. IDs are never reused,
// even after deletion.
func (s *Store) Insert(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, core.NewStorageError("insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextID
	s.nextID++
	s.items = append(s.items, tx)
	return tx.ID, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) Update(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(tx.ID)
	if i < 0 {
		return nil
	}
	cur := &s.items[i]
	cur.Amount = tx.Amount
	cur.Category = tx.Category
	cur.Date = tx.Date
	cur.Description = tx.Description
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return nil
}

func (s *Store) AggregateByDate(_ context.Context) ([]core.DailyTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := map[string]*core.DailyTotals{}
	for _, tx := range s.items {
		key := tx.Date.String()
		row, ok := byDate[key]
		if !ok {
			row = &core.DailyTotals{Date: tx.Date}
			byDate[key] = row
		}
		switch tx.Type {
		case core.Income:
			row.Income += tx.Amount
		case core.Expense:
			row.Expense += tx.Amount
		}
	}

	out := make([]core.DailyTotals, 0, len(byDate))
	for _, row := range byDate {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out, nil
}

// AggregateExpenseByCategory returns categories in first-seen order.
func (s *Store) AggregateExpenseByCategory(_ context.Context) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.CategoryTotal, 0)
	index := map[string]int{}
	for _, tx := range s.items {
		if tx.Type != core.Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, core.CategoryTotal{Category: tx.Category})
		}
		out[i].Amount += tx.Amount
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
