package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// Memory is a concurrency-safe map-backed store useful for tests and local
// development. Top level scopes run one at a time, so every scope holds all
// locks for its whole duration.
type Memory struct {
	mu     sync.RWMutex
	scope  sync.Mutex
	data   map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	value, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return clone(value), true, nil
}

func (m *Memory) Iterate(_ context.Context, prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	snapshot := make(map[string][]byte)
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			snapshot[k] = clone(v)
		}
	}
	m.mu.RUnlock()
	return iterateSorted(snapshot, fn)
}

func (m *Memory) Put(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[string(key)] = clone(value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *Memory) Transactional(ctx context.Context, fn func(tx Writer) error) error {
	m.scope.Lock()
	defer m.scope.Unlock()
	return runLayer(ctx, m, fn)
}

// Lock is a no-op: top level scopes are already exclusive.
func (m *Memory) Lock(context.Context, []byte) error {
	return nil
}

// Ping reports whether the store is still open.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the stored data. Further calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// apply writes a committed layer in one critical section so readers never
// observe half of a scope.
func (m *Memory) apply(writes map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for k, v := range writes {
		if v == nil {
			delete(m.data, k)
			continue
		}
		m.data[k] = v
	}
	return nil
}

type applier interface {
	Writer
	apply(writes map[string][]byte) error
}

// layer buffers the writes of one transactional scope on top of its parent.
// A nil value marks a deletion.
type layer struct {
	parent applier
	writes map[string][]byte
}

func runLayer(ctx context.Context, parent applier, fn func(tx Writer) error) error {
	l := &layer{parent: parent, writes: make(map[string][]byte)}
	if err := fn(l); err != nil {
		return err
	}
	if len(l.writes) == 0 {
		return nil
	}
	return parent.apply(l.writes)
}

func (l *layer) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if value, ok := l.writes[string(key)]; ok {
		if value == nil {
			return nil, false, nil
		}
		return clone(value), true, nil
	}
	return l.parent.Get(ctx, key)
}

func (l *layer) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	merged := make(map[string][]byte)
	if err := l.parent.Iterate(ctx, prefix, func(key, value []byte) error {
		merged[string(key)] = value
		return nil
	}); err != nil {
		return err
	}
	for k, v := range l.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = clone(v)
	}
	return iterateSorted(merged, fn)
}

func (l *layer) Put(_ context.Context, key, value []byte) error {
	v := clone(value)
	if v == nil {
		v = []byte{}
	}
	l.writes[string(key)] = v
	return nil
}

func (l *layer) Delete(_ context.Context, key []byte) error {
	l.writes[string(key)] = nil
	return nil
}

func (l *layer) Transactional(ctx context.Context, fn func(tx Writer) error) error {
	return runLayer(ctx, l, fn)
}

func (l *layer) Lock(context.Context, []byte) error {
	return nil
}

func (l *layer) apply(writes map[string][]byte) error {
	for k, v := range writes {
		l.writes[k] = v
	}
	return nil
}

func iterateSorted(entries map[string][]byte, fn func(key, value []byte) error) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), entries[k]); err != nil {
			return err
		}
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
