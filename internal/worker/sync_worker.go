package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finance/internal/amqp"
	"finance/internal/core"
	flog "finance/internal/log"
	"finance/internal/sheets"
	"finance/internal/storage"
)

// SyncWorker mirrors transaction changes into an external sheet.
type SyncWorker struct {
	storage storage.Repository
	mirror  sheets.TransactionMirror
}

// NewSyncWorker wires the worker. storage may be nil, in which case the
// event payload is mirrored as received.
func NewSyncWorker(storage storage.Repository, mirror sheets.TransactionMirror) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		mirror:  mirror,
	}
}

// HandleEvent processes a single transaction event from AMQP. Returning an
// error requeues the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		flog.FieldOperation, flog.OpSync,
		"event", ev.Event,
		flog.FieldID, ev.ID,
		"timestamp", ev.Timestamp)

	switch ev.Event {
	case amqp.EventCreated, amqp.EventUpdated:
		return w.syncTransaction(ctx, ev)
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, ev.ID); err != nil {
			return fmt.Errorf("remove transaction %d from mirror: %w", ev.ID, err)
		}
		slog.InfoContext(ctx, "Removed transaction from mirror", flog.FieldID, ev.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "event", ev.Event, flog.FieldID, ev.ID)
		return nil
	}
}

// syncTransaction prefers the stored row over the payload so that replayed
// events never overwrite newer data.
func (w *SyncWorker) syncTransaction(ctx context.Context, ev *amqp.TransactionEvent) error {
	var tx core.Transaction
	if ev.Transaction != nil {
		tx = *ev.Transaction
	}

	if w.storage != nil {
		stored, err := w.storage.Get(ctx, ev.ID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			slog.InfoContext(ctx, "Transaction deleted before sync, removing from mirror", flog.FieldID, ev.ID)
			if err := w.mirror.Remove(ctx, ev.ID); err != nil {
				return fmt.Errorf("remove transaction %d from mirror: %w", ev.ID, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("get transaction from storage: %w", err)
		default:
			tx = stored
		}
	}

	if tx.ID == 0 {
		return fmt.Errorf("event %s for id %d carries no transaction", ev.Event, ev.ID)
	}

	if err := w.mirror.Upsert(ctx, tx); err != nil {
		return fmt.Errorf("sync transaction %d to mirror: %w", tx.ID, err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction", flog.NewFields().
		WithOperation(flog.OpSync).
		WithTransaction(tx.ID, tx.Type.String(), tx.Amount, tx.Category).
		ToSlice()...)

	return nil
}

// StartupSync upserts every stored transaction. It recovers from events
// missed while the worker was down; individual failures are counted and
// logged, not returned.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if w.storage == nil {
		return errors.New("startup sync requires storage")
	}

	txs, err := w.storage.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list transactions for startup sync: %w", err)
	}

	if len(txs) == 0 {
		slog.InfoContext(ctx, "No transactions found on startup", flog.FieldOperation, flog.OpStartup)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.Upsert(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				flog.FieldOperation, flog.OpStartup, flog.FieldID, tx.ID, flog.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		flog.FieldOperation, flog.OpStartup,
		"total", len(txs),
		"synced", successCount,
		"errors", errorCount)

	return nil
}
