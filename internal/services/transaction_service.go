package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finance/internal/core"
	flog "finance/internal/log"
	"finance/internal/storage"
)

// EventPublisher receives a notification after every successful write.
// Implementations must not block for long; failures are logged only.
type EventPublisher interface {
	PublishCreated(ctx context.Context, tx core.Transaction) error
	PublishUpdated(ctx context.Context, tx core.Transaction) error
	PublishDeleted(ctx context.Context, id int64) error
	Close() error
}

// TransactionService is the single source of truth for what counts as a
// valid transaction. Every caller (HTTP API, worker, tests) goes through it.
type TransactionService struct {
	storage   storage.Repository
	publisher EventPublisher
}

// NewTransactionService wires the service. publisher may be nil.
func NewTransactionService(storage storage.Repository, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
	}
}

// Validate checks the three required raw fields in order: presence, amount,
// date. Category is returned to the caller untouched.
func Validate(rawAmount, rawCategory, rawDate string) (float64, core.Date, error) {
	for _, f := range []struct{ name, value string }{
		{"amount", rawAmount},
		{"category", rawCategory},
		{"date", rawDate},
	} {
		if strings.TrimSpace(f.value) == "" {
			return 0, core.Date{}, &core.ValidationError{Field: f.name, Err: core.ErrMissingField}
		}
	}

	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return 0, core.Date{}, &core.ValidationError{Field: "amount", Err: err}
	}

	date, err := core.ParseDate(rawDate)
	if err != nil {
		return 0, core.Date{}, &core.ValidationError{Field: "date", Err: err}
	}

	return amount, date, nil
}

func (s *TransactionService) Validate(rawAmount, rawCategory, rawDate string) (float64, core.Date, error) {
	return Validate(rawAmount, rawCategory, rawDate)
}

// AddTransaction validates the raw input and inserts a new row. The store
// is not touched when validation fails.
func (s *TransactionService) AddTransaction(ctx context.Context, typ core.TransactionType, rawAmount, rawCategory, rawDate, rawDescription string) (int64, error) {
	if !typ.IsValid() {
		return 0, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}
	amount, date, err := Validate(rawAmount, rawCategory, rawDate)
	if err != nil {
		slog.DebugContext(ctx, "Transaction rejected",
			flog.NewFields().WithOperation(flog.OpCreate).WithError(err).ToSlice()...)
		return 0, err
	}

	tx := core.Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    rawCategory,
		Date:        date,
		Description: rawDescription,
	}
	id, err := s.storage.Insert(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	tx.ID = id

	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to publish created event", flog.NewFields().
				WithOperation(flog.OpCreate).
				WithTransaction(id, typ.String(), amount, rawCategory).
				WithError(err).
				ToSlice()...)
		}
	}

	return id, nil
}

// UpdateTransaction validates the raw input and replaces the mutable
// fields of id. A missing id is not an error.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, rawAmount, rawCategory, rawDate, rawDescription string) error {
	amount, date, err := Validate(rawAmount, rawCategory, rawDate)
	if err != nil {
		slog.DebugContext(ctx, "Transaction rejected",
			flog.FieldOperation, flog.OpUpdate, flog.FieldID, id, flog.FieldError, err)
		return err
	}

	err = s.storage.Update(ctx, core.Transaction{
		ID:          id,
		Amount:      amount,
		Category:    rawCategory,
		Date:        date,
		Description: rawDescription,
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}

	if s.publisher != nil {
		s.publishUpdated(ctx, id)
	}
	return nil
}

// DeleteTransaction removes id unconditionally. Confirmation is the
// caller's job.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish deleted event",
				flog.FieldOperation, flog.OpDelete, flog.FieldID, id, flog.FieldError, err)
		}
	}
	return nil
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.storage.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := s.storage.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// IncomeVsExpenseSeries is the dataset of the time-series chart: one point
// per date, ascending.
func (s *TransactionService) IncomeVsExpenseSeries(ctx context.Context) ([]core.DailyTotals, error) {
	series, err := s.storage.AggregateByDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("income vs expense series: %w", err)
	}
	return series, nil
}

// ExpenseBreakdown is the dataset of the proportion chart. Order is not
// defined.
func (s *TransactionService) ExpenseBreakdown(ctx context.Context) ([]core.CategoryTotal, error) {
	totals, err := s.storage.AggregateExpenseByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("expense breakdown: %w", err)
	}
	return totals, nil
}

// publishUpdated re-reads the row so subscribers get the full record; an
// update that matched nothing publishes nothing.
func (s *TransactionService) publishUpdated(ctx context.Context, id int64) {
	tx, err := s.storage.Get(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.DebugContext(ctx, "Skipping updated event for missing transaction", flog.FieldID, id)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload transaction for event", flog.FieldID, id, flog.FieldError, err)
		return
	}
	if err := s.publisher.PublishUpdated(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish updated event",
			flog.FieldOperation, flog.OpUpdate, flog.FieldID, id, flog.FieldError, err)
	}
}

// Close closes both storage and publisher.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}

	return nil
}
