// Package refcount tracks how many ledger positions keep an account alive.
//
// A position is a non-zero balance of one asset. While an account holds at
// least one position it is self-supporting and other subsystems must not purge
// it. Counters never go below zero.
package refcount

import (
	"context"
	"sync"
)

// Counter is the account-reference collaborator the ledger notifies when an
// account gains or loses a position.
type Counter interface {
	Increment(ctx context.Context, account string) error
	Decrement(ctx context.Context, account string) error
	References(ctx context.Context, account string) (uint64, error)
}

type memoryCounter struct {
	mu   sync.Mutex
	refs map[string]uint64
}

// NewMemory creates a concurrency-safe in-memory counter.
func NewMemory() Counter {
	return &memoryCounter{refs: make(map[string]uint64)}
}

func (c *memoryCounter) Increment(_ context.Context, account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[account]++
	return nil
}

func (c *memoryCounter) Decrement(_ context.Context, account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch n := c.refs[account]; n {
	case 0:
	case 1:
		delete(c.refs, account)
	default:
		c.refs[account] = n - 1
	}
	return nil
}

func (c *memoryCounter) References(_ context.Context, account string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs[account], nil
}
