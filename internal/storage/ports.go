package storage

import (
	"context"

	"finance/internal/core"
)

// Repository is the single-table transaction store. Every failure is
// returned as a *core.StorageError, except Get on a missing id which
// returns core.ErrNotFound.
type Repository interface {
	Insert(ctx context.Context, tx core.Transaction) (int64, error)
	ListAll(ctx context.Context) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	// Update replaces amount, category, date and description of the row
	// matching tx.ID. A missing id is a silent no-op.
	Update(ctx context.Context, tx core.Transaction) error
	// Delete removes the row; a missing id is a silent no-op.
	Delete(ctx context.Context, id int64) error
	AggregateByDate(ctx context.Context) ([]core.DailyTotals, error)
	AggregateExpenseByCategory(ctx context.Context) ([]core.CategoryTotal, error)
	Close() error
}
