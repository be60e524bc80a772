package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions tunes how the shared client connects at startup.
type RedisOptions struct {
	// ConnectAttempts bounds the startup pings; Redis often comes up after the service.
	ConnectAttempts int
	// RetryDelay is the pause before the second attempt, doubled after each failure.
	RetryDelay time.Duration
	// OpTimeout bounds reads and writes of the reference counter, event stream
	// and middleware calls.
	OpTimeout time.Duration
}

// DefaultRedisOptions is used by main.
var DefaultRedisOptions = RedisOptions{
	ConnectAttempts: 5,
	RetryDelay:      200 * time.Millisecond,
	OpTimeout:       time.Second,
}

// NewRedisClient builds the client shared by the reference counter, the event
// stream and the HTTP middlewares, retrying the first ping with backoff.
func NewRedisClient(ctx context.Context, url string, opts RedisOptions) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	if opts.ConnectAttempts < 1 {
		opts.ConnectAttempts = 1
	}

	parsed, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.OpTimeout > 0 {
		parsed.ReadTimeout = opts.OpTimeout
		parsed.WriteTimeout = opts.OpTimeout
	}
	client := redis.NewClient(parsed)

	delay := opts.RetryDelay
	var pingErr error
	for attempt := 1; attempt <= opts.ConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = client.Ping(pingCtx).Err()
		cancel()
		if pingErr == nil {
			return client, nil
		}
		if attempt == opts.ConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			client.Close()
			return nil, fmt.Errorf("ping redis: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	client.Close()
	return nil, fmt.Errorf("ping redis after %d attempts: %w", opts.ConnectAttempts, pingErr)
}
