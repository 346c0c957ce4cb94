package models

import "math"

const (
	// NoTransactions is the cursor value before any transaction has been seen.
	// Store ids start at 1.
	NoTransactions int64 = 0

	// Unbounded disables the upper id bound of balance and history queries.
	Unbounded int64 = math.MaxInt64
)
