// Package ledger accepts transactions from clients, validates them and
// appends them to the ledger store exactly once per request key.
package ledger

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/bank-ledger-service/internal/config"
	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/idempotency"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models/events"
)

// Receipt is the outcome of an accepted submission.
type Receipt struct {
	TransactionID int64 `json:"transaction_id"`
	Replayed      bool  `json:"replayed"`
}

// Ledger is the transaction submitter.
type Ledger struct {
	store     interfaces.LedgerStore
	verifier  interfaces.TokenVerifier
	balances  interfaces.BalanceReader
	dedup     idempotency.Cache
	publisher interfaces.EventPublisher // optional
	routing   string
	timeout   time.Duration
	log       *logger.L

	keys *keyLocks
}

// NewLedger creates a submitter. publisher may be nil.
func NewLedger(
	store interfaces.LedgerStore,
	verifier interfaces.TokenVerifier,
	balances interfaces.BalanceReader,
	dedup idempotency.Cache,
	publisher interfaces.EventPublisher,
	cfg config.Config,
) *Ledger {
	return &Ledger{
		store:     store,
		verifier:  verifier,
		balances:  balances,
		dedup:     dedup,
		publisher: publisher,
		routing:   cfg.LocalRoutingNumber,
		timeout:   cfg.StoreTimeout,
		log:       logger.New("ledger"),
		keys:      newKeyLocks(),
	}
}

// PostTransaction runs the submission pipeline for tx on behalf of the
// holder of token. Only the account, routing, amount and request key
// fields of tx are read.
//
// A request key that already produced a transaction answers with that
// transaction id and Replayed set, without validating again. Reusing
// the key for a different transaction fails with ErrDuplicateRequest.
// Request keys are scoped to the authenticated account.
func (l *Ledger) PostTransaction(ctx context.Context, token string, tx models.Transaction) (Receipt, error) {
	claim, err := l.verifier.VerifyToken(token)
	if err != nil {
		l.log.Debugf("rejected: %s", err)
		return Receipt{}, fault.ErrUnauthorized
	}

	if tx.RequestKey == "" {
		return l.post(ctx, claim, tx)
	}

	// keys belong to the caller, another account's key is a new request
	key := claim.Account + "/" + tx.RequestKey

	// one submission per key at a time, the next one sees the dedup entry
	l.keys.lock(key)
	defer l.keys.unlock(key)

	fingerprint := idempotency.Fingerprint(tx)
	if prior, ok := l.dedup.Get(key); ok {
		if prior.Fingerprint != fingerprint {
			l.log.Debugf("request key: %s reused for a different transaction", tx.RequestKey)
			return Receipt{}, fault.ErrDuplicateRequest
		}
		return Receipt{TransactionID: prior.TransactionID, Replayed: true}, nil
	}

	receipt, err := l.post(ctx, claim, tx)
	if err != nil {
		return Receipt{}, err
	}
	l.dedup.Put(key, idempotency.Entry{
		TransactionID: receipt.TransactionID,
		Fingerprint:   fingerprint,
		CreatedAt:     time.Now(),
	})
	return receipt, nil
}

func (l *Ledger) post(ctx context.Context, claim interfaces.Claim, tx models.Transaction) (Receipt, error) {
	if err := l.validate(ctx, claim, tx); err != nil {
		l.log.Debugf("rejected: %s from: %s/%s to: %s/%s amount: %d",
			err, tx.FromAccount, tx.FromRouting, tx.ToAccount, tx.ToRouting, tx.Amount)
		return Receipt{}, err
	}

	tx.ID = 0
	tx.CreatedAt = time.Time{}

	appendCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	stored, err := l.store.Append(appendCtx, tx)
	if err != nil {
		l.log.Errorf("append failed: %s", err)
		return Receipt{}, fault.Unavailable(err)
	}
	l.log.Infof("appended transaction: %d amount: %d", stored.ID, stored.Amount)

	l.publish(ctx, stored)
	return Receipt{TransactionID: stored.ID}, nil
}

// validate runs the checks in order and returns the first failure
func (l *Ledger) validate(ctx context.Context, claim interfaces.Claim, tx models.Transaction) error {
	if err := validateDetails(tx); err != nil {
		return err
	}

	local := tx.FromRouting == l.routing
	if local && tx.FromAccount != claim.Account {
		return fault.ErrNotAuthenticated
	}
	if tx.SameEndpoints() {
		return fault.ErrSendToSelf
	}
	if tx.Amount <= 0 {
		return fault.ErrInvalidAmount
	}

	// best effort: a concurrent submission from the same account may
	// still overdraw it
	if local {
		balance, err := l.balances.Balance(ctx, tx.FromAccount)
		if err != nil {
			return fault.Unavailable(err)
		}
		if balance < tx.Amount {
			return fault.ErrInsufficientBalance
		}
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, tx models.Transaction) {
	if l.publisher == nil {
		return
	}
	event := events.TransactionCompleted{
		EventID:       uuid.New().String(),
		TransactionID: tx.ID,
		RequestKey:    tx.RequestKey,
		FromAccount:   tx.FromAccount,
		FromRouting:   tx.FromRouting,
		ToAccount:     tx.ToAccount,
		ToRouting:     tx.ToRouting,
		Amount:        tx.Amount,
		AmountMajor:   decimal.New(tx.Amount, -2),
		OccurredAt:    tx.CreatedAt,
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.log.Warnf("publish transaction: %d failed: %s", tx.ID, err)
	}
}
