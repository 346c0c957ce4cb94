package interfaces

import "context"

// BalanceReader answers the current balance of a local account.
type BalanceReader interface {
	Balance(ctx context.Context, account string) (int64, error)
}
