package refcount

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return NewRedis(client), mr, cleanup
}

func exerciseCounter(t *testing.T, c Counter) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := c.Increment(ctx, "alice"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := c.Decrement(ctx, "alice"); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	n, err := c.References(ctx, "alice")
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 references, got %d", n)
	}

	// saturates at zero
	for i := 0; i < 4; i++ {
		if err := c.Decrement(ctx, "alice"); err != nil {
			t.Fatalf("decrement: %v", err)
		}
	}
	if n, _ := c.References(ctx, "alice"); n != 0 {
		t.Fatalf("expected 0 references, got %d", n)
	}
	if err := c.Increment(ctx, "alice"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if n, _ := c.References(ctx, "alice"); n != 1 {
		t.Fatalf("expected 1 reference after saturation, got %d", n)
	}

	if n, _ := c.References(ctx, "bob"); n != 0 {
		t.Fatalf("expected unknown account to have 0 references, got %d", n)
	}
}

func TestMemoryCounter(t *testing.T) {
	exerciseCounter(t, NewMemory())
}

func TestRedisCounter(t *testing.T) {
	c, _, cleanup := setupRedisCounter(t)
	defer cleanup()
	exerciseCounter(t, c)
}

func TestRedisCounterDropsKeyAtZero(t *testing.T) {
	c, mr, cleanup := setupRedisCounter(t)
	defer cleanup()
	ctx := context.Background()

	c.Increment(ctx, "carol")
	if !mr.Exists(refsPrefix + "carol") {
		t.Fatalf("expected reference key to exist")
	}
	c.Decrement(ctx, "carol")
	if mr.Exists(refsPrefix + "carol") {
		t.Fatalf("expected reference key to be removed at zero")
	}
}
