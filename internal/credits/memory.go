package credits

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger is an in-process [Ledger].
type MemoryLedger struct {
	allowance int

	mu       sync.Mutex
	accounts map[string]*Balance
	consumed map[string]struct{}
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger returns an empty ledger. New users start with allowance
// credits; a non-positive value selects [DefaultAllowance].
func NewMemoryLedger(allowance int) *MemoryLedger {
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	return &MemoryLedger{
		allowance: allowance,
		accounts:  make(map[string]*Balance),
		consumed:  make(map[string]struct{}),
	}
}

// account must be called with mu held.
func (l *MemoryLedger) account(user string) *Balance {
	a, ok := l.accounts[user]
	if !ok {
		a = &Balance{Remaining: l.allowance, Total: l.allowance}
		l.accounts[user] = a
	}
	return a
}

// Balance implements [Ledger].
func (l *MemoryLedger) Balance(_ context.Context, user string) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.account(user), nil
}

// Consume implements [Ledger].
func (l *MemoryLedger) Consume(_ context.Context, user, generationID string) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(user)
	if _, ok := l.consumed[generationID]; ok {
		return *a, nil
	}
	if a.Remaining <= 0 {
		return *a, ErrInsufficient
	}
	a.Remaining--
	l.consumed[generationID] = struct{}{}
	return *a, nil
}

// Grant implements [Ledger].
func (l *MemoryLedger) Grant(_ context.Context, user string, n int) (Balance, error) {
	if n <= 0 {
		return Balance{}, fmt.Errorf("%w: %d", ErrInvalidGrant, n)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(user)
	a.Remaining += n
	a.Total += n
	return *a, nil
}
