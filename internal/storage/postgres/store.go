package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/sheikh-saqib/bank-ledger-service/internal/fault"
	"github.com/sheikh-saqib/bank-ledger-service/internal/interfaces"
	"github.com/sheikh-saqib/bank-ledger-service/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS transactions (
	transaction_id BIGSERIAL PRIMARY KEY,
	from_acct      CHAR(10) NOT NULL,
	from_route     CHAR(9) NOT NULL,
	to_acct        CHAR(10) NOT NULL,
	to_route       CHAR(9) NOT NULL,
	amount         BIGINT NOT NULL CHECK (amount > 0),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	request_key    TEXT
);
CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions (from_acct, from_route, transaction_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions (to_acct, to_route, transaction_id);`

const transactionColumns = `transaction_id, from_acct, from_route, to_acct, to_route, amount, created_at, COALESCE(request_key, '')`

type PostgresLedgerStore struct {
	db *sql.DB
}

// Open connects to dsn with the lib/pq driver.
func Open(dsn string) (*PostgresLedgerStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgresLedgerStore(db), nil
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Migrate creates the transactions table and its indexes.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return classify(err)
}

func (p *PostgresLedgerStore) Ping(ctx context.Context) error {
	return classify(p.db.PingContext(ctx))
}

func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

func (p *PostgresLedgerStore) LatestTransactionID(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(MAX(transaction_id), 0) FROM transactions`

	var latest int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return models.NoTransactions, classify(err)
	}
	return latest, nil
}

func (p *PostgresLedgerStore) FindAfter(ctx context.Context, cursor int64) ([]models.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions
	WHERE transaction_id > $1 ORDER BY transaction_id ASC`

	return p.query(ctx, query, cursor)
}

func (p *PostgresLedgerStore) FindBalance(ctx context.Context, account, routing string, upTo int64) (int64, error) {
	const query = `SELECT
	COALESCE((SELECT SUM(amount) FROM transactions WHERE to_acct = $1 AND to_route = $2 AND transaction_id <= $3), 0) -
	COALESCE((SELECT SUM(amount) FROM transactions WHERE from_acct = $1 AND from_route = $2 AND transaction_id <= $3), 0)`

	var balance int64
	if err := p.db.QueryRowContext(ctx, query, account, routing, upTo).Scan(&balance); err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

func (p *PostgresLedgerStore) FindHistory(ctx context.Context, account, routing string, upTo int64, limit int) ([]models.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions
	WHERE ((from_acct = $1 AND from_route = $2) OR (to_acct = $1 AND to_route = $2))
	AND transaction_id <= $3
	ORDER BY transaction_id DESC LIMIT $4`

	return p.query(ctx, query, account, routing, upTo, limit)
}

// appendLock serialises appends: ids must become visible in the order
// they are assigned or a reader at cursor 4 can see 6 before 5.
const appendLock = 883745

func (p *PostgresLedgerStore) Append(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	const query = `INSERT INTO transactions (from_acct, from_route, to_acct, to_route, amount, request_key)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	RETURNING transaction_id, created_at`

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, classify(err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLock); err != nil {
		return models.Transaction{}, classify(err)
	}

	err = dbTx.QueryRowContext(ctx, query,
		tx.FromAccount, tx.FromRouting, tx.ToAccount, tx.ToRouting, tx.Amount, tx.RequestKey,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return models.Transaction{}, classify(err)
	}

	if err := dbTx.Commit(); err != nil {
		return models.Transaction{}, classify(err)
	}
	return tx, nil
}

func (p *PostgresLedgerStore) query(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.FromAccount,
			&tx.FromRouting,
			&tx.ToAccount,
			&tx.ToRouting,
			&tx.Amount,
			&tx.CreatedAt,
			&tx.RequestKey,
		)
		if err != nil {
			return nil, classify(err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return txs, nil
}

// classify maps driver errors onto the fault taxonomy: integrity
// violations (SQLSTATE class 23) are the store rejecting the row,
// everything else is treated as the store being unavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return fault.ErrConstraintViolation
	}
	return fault.Unavailable(err)
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
