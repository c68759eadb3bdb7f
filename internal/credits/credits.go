// Package credits tracks how many generations each user may still run.
//
// A credit is consumed once per generation ID: retrying Consume with the
// same ID is a no-op that reports the current balance. Balances never drop
// below zero.
package credits

import (
	"context"
	"errors"
)

// DefaultAllowance is the balance a new user starts with.
const DefaultAllowance = 10

var (
	// ErrInsufficient is returned when a user has no credits left.
	ErrInsufficient = errors.New("credits: insufficient credits")

	// ErrInvalidGrant is returned by Grant for non-positive amounts.
	ErrInvalidGrant = errors.New("credits: grant must be positive")
)

// Balance is a user's credit position.
type Balance struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// Ledger is a credit store. Implementations must be safe for concurrent use
// and must make Consume atomic.
type Ledger interface {
	// Balance returns the user's balance, creating the account with the
	// plan allowance on first use.
	Balance(ctx context.Context, user string) (Balance, error)

	// Consume takes one credit for generationID. It returns
	// [ErrInsufficient] when the balance is zero and is idempotent per
	// generationID.
	Consume(ctx context.Context, user, generationID string) (Balance, error)

	// Grant adds n credits to the user's remaining and total balance.
	Grant(ctx context.Context, user string, n int) (Balance, error)
}
