package sheets

import (
	"context"

	"finance/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps an external copy of the transactions table.
	// Both operations are idempotent: replaying an event is harmless.
	TransactionMirror interface {
		// Upsert writes tx to the row keyed by tx.ID, appending one when
		// the id has never been mirrored.
		Upsert(ctx context.Context, tx core.Transaction) error
		// Remove clears the row keyed by id. A missing row is not an error.
		Remove(ctx context.Context, id int64) error
	}
)
