package accountcache

import (
	"context"

	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

// StoreBalanceReader answers balances straight from the ledger store,
// for deployments that run the submitter without a cache.
type StoreBalanceReader struct {
	store   interfaces.LedgerStore
	routing string
}

func NewStoreBalanceReader(store interfaces.LedgerStore, cfg config.Config) *StoreBalanceReader {
	return &StoreBalanceReader{store: store, routing: cfg.LocalRoutingNumber}
}

func (r *StoreBalanceReader) Balance(ctx context.Context, account string) (int64, error) {
	balance, err := r.store.FindBalance(ctx, account, r.routing, models.Unbounded)
	if err != nil {
		return 0, fault.Unavailable(err)
	}
	return balance, nil
}

var (
	_ interfaces.BalanceReader = (*Cache)(nil)
	_ interfaces.BalanceReader = (*StoreBalanceReader)(nil)
)
