// Package resilience implements the provider fallback chain used by every
// generation path.
//
// A [Chain] is an ordered set of provider descriptors. [Execute] walks the
// credentialed descriptors in ascending priority, retrying the same provider
// only when it answers 429 and moving on after any other failure. There is no
// state carried between calls: every Execute starts at the top of the chain.
package resilience

import (
	"cmp"
	"slices"
)

// Descriptor describes one provider in a chain.
type Descriptor[T any] struct {
	// Name identifies the provider in logs, metrics and results.
	Name string
	// Priority orders providers; lower runs first. Ties keep registration
	// order.
	Priority int
	// CredentialPresent is false when the provider's API key could not be
	// resolved. Such providers are skipped without counting as attempts.
	CredentialPresent bool
	// Value is the provider client. It is the zero value when
	// CredentialPresent is false.
	Value T
}

// Chain holds descriptors in registration order. A Chain is immutable once
// built and safe for concurrent use.
type Chain[T any] struct {
	entries []Descriptor[T]
}

// NewChain builds a chain from descriptors in registration order.
func NewChain[T any](descs ...Descriptor[T]) *Chain[T] {
	return &Chain[T]{entries: slices.Clone(descs)}
}

// Len returns the number of descriptors, credentialed or not.
func (c *Chain[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Snapshot returns every descriptor sorted by priority (stable), including
// those without credentials.
func (c *Chain[T]) Snapshot() []Descriptor[T] {
	if c == nil {
		return nil
	}
	out := slices.Clone(c.entries)
	slices.SortStableFunc(out, func(a, b Descriptor[T]) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return out
}

// Runnable returns the descriptors Execute will try, in order.
func (c *Chain[T]) Runnable() []Descriptor[T] {
	return slices.DeleteFunc(c.Snapshot(), func(d Descriptor[T]) bool {
		return !d.CredentialPresent
	})
}
