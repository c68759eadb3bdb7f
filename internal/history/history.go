// Package history persists generated results per user.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("history: record not found")

// DefaultLimit and MaxLimit bound [ListOptions.Limit].
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Record is one stored generation.
type Record struct {
	UserID string `json:"user_id"`
	content.Result
}

// ListOptions filters List. The zero value lists the newest DefaultLimit
// records of every kind.
type ListOptions struct {
	Kind  content.Kind
	Limit int
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return DefaultLimit
	case o.Limit > MaxLimit:
		return MaxLimit
	}
	return o.Limit
}

// Store persists records. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores rec. Saving an existing ID replaces the record.
	Save(ctx context.Context, rec Record) error

	// List returns the user's records, newest first.
	List(ctx context.Context, user string, opts ListOptions) ([]Record, error)

	// Get returns the record with the given ID or [ErrNotFound].
	Get(ctx context.Context, id string) (Record, error)

	// Close releases resources held by the store.
	Close() error
}

func validate(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("history: record has no id")
	}
	if rec.UserID == "" {
		return fmt.Errorf("history: record %s has no user", rec.ID)
	}
	return nil
}
