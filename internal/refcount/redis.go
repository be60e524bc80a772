package refcount

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const refsPrefix = "refs:v1:"

// decrementScript lowers a counter without letting it go below zero and drops
// the key once it reaches zero.
var decrementScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current <= 1 then
    redis.call('DEL', KEYS[1])
    return 0
end
return redis.call('DECR', KEYS[1])
`)

// RedisCounter keeps reference counts in Redis so they are shared between replicas.
type RedisCounter struct {
	client *redis.Client
}

// NewRedis builds a counter backed by the provided Redis client.
func NewRedis(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Increment adds one reference to account.
func (c *RedisCounter) Increment(ctx context.Context, account string) error {
	if err := c.client.Incr(ctx, refsPrefix+account).Err(); err != nil {
		return fmt.Errorf("increment references for %s: %w", account, err)
	}
	return nil
}

// Decrement removes one reference from account, saturating at zero.
func (c *RedisCounter) Decrement(ctx context.Context, account string) error {
	if err := decrementScript.Run(ctx, c.client, []string{refsPrefix + account}).Err(); err != nil {
		return fmt.Errorf("decrement references for %s: %w", account, err)
	}
	return nil
}

// References returns the current reference count of account.
func (c *RedisCounter) References(ctx context.Context, account string) (uint64, error) {
	n, err := c.client.Get(ctx, refsPrefix+account).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("read references for %s: %w", account, err)
	}
	return n, nil
}
