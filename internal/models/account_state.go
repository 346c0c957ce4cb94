package models

// AccountState is the cached projection of one local account.
//
// History is most-recent-first and shared between readers; callers must
// not modify it.
type AccountState struct {
	Balance int64         `json:"balance"`
	History []Transaction `json:"history,omitempty"`

	// AsOf is the highest transaction id reflected in Balance and History.
	AsOf int64 `json:"-"`
}

// Apply returns a new state with tx applied as delta, keeping at most
// limit history entries. The receiver is left untouched.
func (s AccountState) Apply(delta int64, tx Transaction, limit int) AccountState {
	next := AccountState{
		Balance: s.Balance + delta,
		AsOf:    tx.ID,
	}
	if limit <= 0 {
		return next
	}
	// both sides of a transfer to the same account
	if len(s.History) > 0 && s.History[0].ID == tx.ID {
		next.History = s.History
		return next
	}

	n := len(s.History) + 1
	if n > limit {
		n = limit
	}
	next.History = make([]Transaction, n)
	next.History[0] = tx
	copy(next.History[1:], s.History)
	return next
}
