package memory

import (
	"context"
	"fmt"
	"sync"

	"finance/internal/core"
	ports "finance/internal/sheets"
)

// Mirror is an in-process TransactionMirror. The worker falls back to it
// when no spreadsheet is configured.
type Mirror struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ ports.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) error {
	if tx.ID <= 0 {
		return fmt.Errorf("cannot mirror transaction without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == tx.ID {
			m.rows[i] = tx
			return nil
		}
	}
	m.rows = append(m.rows, tx)
	return nil
}

func (m *Mirror) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns the mirrored transactions in first-written order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
