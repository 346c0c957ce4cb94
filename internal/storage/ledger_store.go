// Package storage selects the LedgerStore implementation named by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage/memory"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage/postgres"
)

// LedgerStore is a store together with the function that releases it.
type LedgerStore struct {
	interfaces.LedgerStore
	Close func() error
}

// Open builds the configured store. The postgres driver is migrated before use.
func Open(ctx context.Context, cfg config.Config) (*LedgerStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return &LedgerStore{
			LedgerStore: memory.NewMemoryLedgerStore(),
			Close:       func() error { return nil },
		}, nil

	case config.DriverPostgres:
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := pg.Migrate(migrateCtx); err != nil {
			pg.Close()
			return nil, err
		}
		return &LedgerStore{LedgerStore: pg, Close: pg.Close}, nil
	}
	return nil, fmt.Errorf("storage: unknown driver %q", cfg.StoreDriver)
}
