package models

import "time"

// Transaction is one immutable row of the ledger.
// ID and CreatedAt are assigned by the store on append.
type Transaction struct {
	ID          int64     `json:"transaction_id"`
	FromAccount string    `json:"from_account"`
	FromRouting string    `json:"from_routing"`
	ToAccount   string    `json:"to_account"`
	ToRouting   string    `json:"to_routing"`
	Amount      int64     `json:"amount"` // minor currency units
	CreatedAt   time.Time `json:"created_at"`
	RequestKey  string    `json:"request_key,omitempty"`
}

// SameEndpoints reports whether sender and receiver are the same account.
func (t Transaction) SameEndpoints() bool {
	return t.FromAccount == t.ToAccount && t.FromRouting == t.ToRouting
}

// References reports whether the transaction touches account on the given routing number.
func (t Transaction) References(account, routing string) bool {
	return (t.FromAccount == account && t.FromRouting == routing) ||
		(t.ToAccount == account && t.ToRouting == routing)
}

// SignedAmount returns the effect of the transaction on account's balance
// under the given routing number.
func (t Transaction) SignedAmount(account, routing string) int64 {
	var delta int64
	if t.FromAccount == account && t.FromRouting == routing {
		delta -= t.Amount
	}
	if t.ToAccount == account && t.ToRouting == routing {
		delta += t.Amount
	}
	return delta
}
