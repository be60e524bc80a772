package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("store closed")

// Reader exposes point lookups and ordered prefix iteration.
type Reader interface {
	// Get returns the value stored under key. The boolean is false when the key is absent.
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	// Iterate calls fn for every key with the given prefix in ascending key order.
	// Returning an error from fn stops iteration and is returned to the caller.
	Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error
}

// Writer is a Reader that can mutate state and open nested transactional scopes.
type Writer interface {
	Reader
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	// Transactional runs fn inside a new scope. Writes made through the scope's
	// Writer become visible to the enclosing scope only if fn returns nil;
	// otherwise every write of the scope is discarded and fn's error is returned.
	Transactional(ctx context.Context, fn func(tx Writer) error) error
	// Lock blocks until the calling scope holds the exclusive lock on key and
	// keeps it until the top level scope ends. Scopes of other processes or
	// store handles that lock the same key wait for it. Outside a scope it is a no-op.
	Lock(ctx context.Context, key []byte) error
}

// Store is the top level handle of a storage backend.
type Store interface {
	Writer
	Ping(ctx context.Context) error
	Close() error
}
