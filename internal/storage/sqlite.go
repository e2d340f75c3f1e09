package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"finance/internal/core"
	flog "finance/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the database file and ensures the
// transactions table exists. Safe to call on every process start.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, core.NewStorageError("initialize", fmt.Errorf("create db directory: %w", err))
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.NewStorageError("initialize", fmt.Errorf("open sqlite database: %w", err))
	}
	// One writer, one reader: keep every statement on the same connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.NewStorageError("initialize", fmt.Errorf("ping database: %w", err))
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, core.NewStorageError("initialize", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, core.NewStorageError("insert", err)
	}
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Type:        tx.Type.String(),
		Amount:      tx.Amount,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Description: tx.Description,
	})
	if err != nil {
		return 0, core.NewStorageError("insert", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		flog.FieldID, id,
		flog.FieldType, tx.Type,
		flog.FieldAmount, tx.Amount,
		flog.FieldCategory, tx.Category,
		flog.FieldDate, tx.Date.String())

	return id, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, core.NewStorageError("list", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toCore(row)
		if err != nil {
			return nil, core.NewStorageError("list", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, core.NewStorageError("get", err)
	}
	tx, err := toCore(row)
	if err != nil {
		return core.Transaction{}, core.NewStorageError("get", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, tx core.Transaction) error {
	affected, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Amount:      tx.Amount,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		Description: tx.Description,
		ID:          tx.ID,
	})
	if err != nil {
		return core.NewStorageError("update", err)
	}
	if affected == 0 {
		slog.DebugContext(ctx, "Update matched no transaction", flog.FieldID, tx.ID)
		return nil
	}

	slog.InfoContext(ctx, "Transaction updated in SQLite",
		flog.FieldID, tx.ID,
		flog.FieldAmount, tx.Amount,
		flog.FieldCategory, tx.Category,
		flog.FieldDate, tx.Date.String())
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return core.NewStorageError("delete", err)
	}
	if affected == 0 {
		slog.DebugContext(ctx, "Delete matched no transaction", flog.FieldID, id)
		return nil
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", flog.FieldID, id)
	return nil
}

func (r *SQLiteRepository) AggregateByDate(ctx context.Context) ([]core.DailyTotals, error) {
	rows, err := r.queries.AggregateByDate(ctx)
	if err != nil {
		return nil, core.NewStorageError("aggregate by date", err)
	}

	// Rows grouped on raw text: '2023-1-5' and '2023-01-05' arrive as
	// separate groups and sort lexically, so merge and order by real date.
	byDate := make(map[core.Date]int, len(rows))
	out := make([]core.DailyTotals, 0, len(rows))
	for _, row := range rows {
		d, err := decodeDate(row.Date)
		if err != nil {
			return nil, core.NewStorageError("aggregate by date", fmt.Errorf("decode date %q: %w", row.Date, err))
		}
		if i, ok := byDate[d]; ok {
			out[i].Income += row.Income
			out[i].Expense += row.Expense
			continue
		}
		byDate[d] = len(out)
		out = append(out, core.DailyTotals{
			Date:    d,
			Income:  row.Income,
			Expense: row.Expense,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (r *SQLiteRepository) AggregateExpenseByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	rows, err := r.queries.AggregateExpenseByCategory(ctx)
	if err != nil {
		return nil, core.NewStorageError("aggregate by category", err)
	}

	out := make([]core.CategoryTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.CategoryTotal{
			Category: row.Category,
			Amount:   row.TotalAmount,
		})
	}
	return out, nil
}

// legacyDateLayout matches dates written by older builds without zero padding.
const legacyDateLayout = "2006-1-2"

// decodeDate reads a stored date. Unpadded legacy values are accepted and
// normalized; new writes always use core.DateLayout.
func decodeDate(s string) (core.Date, error) {
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(legacyDateLayout, s)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

func toCore(row Transaction) (core.Transaction, error) {
	d, err := decodeDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode date %q of transaction %d: %w", row.Date, row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Type:        core.TransactionType(row.Type),
		Amount:      row.Amount,
		Category:    row.Category,
		Date:        d,
		Description: row.Description.String,
	}, nil
}
