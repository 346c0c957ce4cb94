package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage/memory"
)

func TestOpenMemory(t *testing.T) {
	store, err := storage.Open(context.Background(), config.Default())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.LedgerStore.(*memory.MemoryLedgerStore)
	assert.True(t, ok)
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = "leveldb"
	_, err := storage.Open(context.Background(), cfg)
	assert.Error(t, err)
}
