package cart

import "context"

// MutateFunc receives the current items and returns the replacement list.
type MutateFunc func(items []Item) ([]Item, error)

// Store persists the cart. Mutate is an atomic read-modify-write of the whole cart on
// every backend: concurrent callers never observe or produce a partially written cart,
// and a MutateFunc error leaves the cart untouched.
type Store interface {
	Items(ctx context.Context) ([]Item, error)
	Mutate(ctx context.Context, fn MutateFunc) ([]Item, error)
}
