package storage

import (
	"context"
	"errors"
	"testing"
)

var errAbort = errors.New("abort")

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Put(ctx, []byte("a/1"), []byte("one")); err != nil {
		t.Fatalf("put a/1: %v", err)
	}

	// failed scope leaves nothing behind
	err := s.Transactional(ctx, func(tx Writer) error {
		if err := tx.Put(ctx, []byte("a/2"), []byte("two")); err != nil {
			return err
		}
		if err := tx.Delete(ctx, []byte("a/1")); err != nil {
			return err
		}
		if _, ok, _ := tx.Get(ctx, []byte("a/1")); ok {
			t.Fatalf("delete not visible inside scope")
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}
	if _, ok, _ := s.Get(ctx, []byte("a/2")); ok {
		t.Fatalf("rolled back write is visible")
	}
	if v, ok, _ := s.Get(ctx, []byte("a/1")); !ok || string(v) != "one" {
		t.Fatalf("rolled back delete removed a/1: %q %v", v, ok)
	}

	// inner failure unwinds only to its own boundary
	err = s.Transactional(ctx, func(tx Writer) error {
		if err := tx.Lock(ctx, []byte("a/")); err != nil {
			return err
		}
		if err := tx.Put(ctx, []byte("a/3"), []byte("three")); err != nil {
			return err
		}
		innerErr := tx.Transactional(ctx, func(inner Writer) error {
			if err := inner.Put(ctx, []byte("a/4"), []byte("four")); err != nil {
				return err
			}
			return errAbort
		})
		if !errors.Is(innerErr, errAbort) {
			t.Fatalf("expected inner abort, got %v", innerErr)
		}
		return tx.Transactional(ctx, func(inner Writer) error {
			return inner.Put(ctx, []byte("a/5"), []byte("five"))
		})
	})
	if err != nil {
		t.Fatalf("outer scope: %v", err)
	}

	var keys []string
	if err := s.Iterate(ctx, []byte("a/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	want := []string{"a/1", "a/3", "a/5"}
	if len(keys) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected keys %v, got %v", want, keys)
		}
	}

	// outer failure discards committed inner scopes
	err = s.Transactional(ctx, func(tx Writer) error {
		if err := tx.Transactional(ctx, func(inner Writer) error {
			return inner.Put(ctx, []byte("a/6"), []byte("six"))
		}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}
	if _, ok, _ := s.Get(ctx, []byte("a/6")); ok {
		t.Fatalf("inner write survived outer rollback")
	}
}
