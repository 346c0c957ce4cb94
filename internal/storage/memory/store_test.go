package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
	"github.com/sheikh-saqib/bank-ledger-service/internal/storage/memory"
)

const (
	routing = "123456789"
	alice   = "1111111111"
	bob     = "2222222222"
)

func transfer(from, to string, amount int64) models.Transaction {
	return models.Transaction{
		FromAccount: from, FromRouting: routing,
		ToAccount: to, ToRouting: routing,
		Amount: amount,
	}
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()

	latest, err := store.LatestTransactionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NoTransactions, latest)

	first, err := store.Append(ctx, transfer(alice, bob, 10))
	require.NoError(t, err)
	second, err := store.Append(ctx, transfer(bob, alice, 3))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	latest, err = store.LatestTransactionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest)
}

func TestAppendRejectsNonPositiveAmount(t *testing.T) {
	_, err := memory.NewMemoryLedgerStore().Append(context.Background(), transfer(alice, bob, 0))
	assert.Equal(t, fault.ErrConstraintViolation, err)
}

func TestFindAfter(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	for i := int64(1); i <= 5; i++ {
		_, err := store.Append(ctx, transfer(alice, bob, i))
		require.NoError(t, err)
	}

	txs, err := store.FindAfter(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{txs[0].ID, txs[1].ID, txs[2].ID})

	txs, err = store.FindAfter(ctx, models.NoTransactions)
	require.NoError(t, err)
	assert.Len(t, txs, 5)

	txs, err = store.FindAfter(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestBalanceAndHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()

	_, _ = store.Append(ctx, transfer(alice, bob, 100))
	_, _ = store.Append(ctx, transfer(bob, alice, 30))
	_, _ = store.Append(ctx, models.Transaction{
		FromAccount: alice, FromRouting: "999999999",
		ToAccount: bob, ToRouting: routing,
		Amount: 7,
	})

	balance, err := store.FindBalance(ctx, alice, routing, models.Unbounded)
	require.NoError(t, err)
	assert.Equal(t, int64(-70), balance)

	balance, err = store.FindBalance(ctx, bob, routing, models.Unbounded)
	require.NoError(t, err)
	assert.Equal(t, int64(77), balance)

	balance, err = store.FindBalance(ctx, bob, routing, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	history, err := store.FindHistory(ctx, bob, routing, models.Unbounded, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(3), history[0].ID)
	assert.Equal(t, int64(2), history[1].ID)

	history, err = store.FindHistory(ctx, alice, routing, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(1), history[0].ID)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	_, _ = store.Append(ctx, transfer(alice, bob, 1))
	store.Reset()

	latest, err := store.LatestTransactionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NoTransactions, latest)
}
