package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionCompleted is published once a transaction has been appended to the ledger.
type TransactionCompleted struct {
	EventID       string          `json:"event_id"`
	TransactionID int64           `json:"transaction_id"`
	RequestKey    string          `json:"request_key,omitempty"`
	FromAccount   string          `json:"from_account"`
	FromRouting   string          `json:"from_routing"`
	ToAccount     string          `json:"to_account"`
	ToRouting     string          `json:"to_routing"`
	Amount        int64           `json:"amount"`
	AmountMajor   decimal.Decimal `json:"amount_major"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
