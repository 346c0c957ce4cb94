package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

// MemoryLedgerStore is an in-memory, append-only LedgerStore.
// Transactions are kept in id order so lookups by id are index arithmetic.
type MemoryLedgerStore struct {
	mu           sync.RWMutex
	transactions []models.Transaction // transactions[i].ID == i+1
	now          func() time.Time
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		transactions: make([]models.Transaction, 0),
		now:          time.Now,
	}
}

func (m *MemoryLedgerStore) LatestTransactionID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.transactions)), nil
}

func (m *MemoryLedgerStore) FindAfter(_ context.Context, cursor int64) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := cursor
	if start < 0 {
		start = 0
	}
	if start >= int64(len(m.transactions)) {
		return nil, nil
	}

	// return a copy so callers can't modify internal state
	out := make([]models.Transaction, int64(len(m.transactions))-start)
	copy(out, m.transactions[start:])
	return out, nil
}

func (m *MemoryLedgerStore) FindBalance(_ context.Context, account, routing string, upTo int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var balance int64
	for _, tx := range m.transactions {
		if tx.ID > upTo {
			break
		}
		balance += tx.SignedAmount(account, routing)
	}
	return balance, nil
}

func (m *MemoryLedgerStore) FindHistory(_ context.Context, account, routing string, upTo int64, limit int) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var history []models.Transaction
	for i := len(m.transactions) - 1; i >= 0 && len(history) < limit; i-- {
		tx := m.transactions[i]
		if tx.ID > upTo {
			continue
		}
		if tx.References(account, routing) {
			history = append(history, tx)
		}
	}
	return history, nil
}

func (m *MemoryLedgerStore) Append(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.Amount <= 0 {
		return models.Transaction{}, fault.ErrConstraintViolation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx.ID = int64(len(m.transactions)) + 1
	tx.CreatedAt = m.now().UTC()
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

// Reset discards every transaction and restarts ids at 1, as a restored
// or re-created database would.
func (m *MemoryLedgerStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions = make([]models.Transaction, 0)
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
