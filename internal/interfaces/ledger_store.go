package interfaces

import (
	"context"

	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

// LedgerStore is the authoritative append-only transaction log.
//
// Transport failures are reported as fault.ErrStoreUnavailable, rows the
// store refuses as fault.ErrConstraintViolation.
type LedgerStore interface {
	// LatestTransactionID returns models.NoTransactions for an empty ledger.
	LatestTransactionID(ctx context.Context) (int64, error)

	// FindAfter returns every transaction with id > cursor, ascending by id.
	FindAfter(ctx context.Context, cursor int64) ([]models.Transaction, error)

	// FindBalance sums the transactions with id <= upTo that reference the account.
	FindBalance(ctx context.Context, account, routing string, upTo int64) (int64, error)

	// FindHistory returns up to limit transactions with id <= upTo that
	// reference the account, most recent first.
	FindHistory(ctx context.Context, account, routing string, upTo int64, limit int) ([]models.Transaction, error)

	// Append stores tx and returns it with its assigned id and timestamp.
	Append(ctx context.Context, tx models.Transaction) (models.Transaction, error)
}
