package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStream    = "ledger:events"
	defaultMaxLen    = 100_000
	streamAddTimeout = 2 * time.Second
)

// RedisStreamSink appends events to a capped Redis stream for downstream consumers.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewRedisStreamSink builds a stream sink. An empty stream name uses "ledger:events".
func NewRedisStreamSink(client *redis.Client, stream string, logger *slog.Logger) *RedisStreamSink {
	if stream == "" {
		stream = defaultStream
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: defaultMaxLen, logger: logger}
}

// Record appends the JSON encoded event. Failures are logged and dropped.
func (s *RedisStreamSink) Record(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode ledger event", slog.String("id", event.ID), slog.Any("error", err))
		return
	}

	addCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), streamAddTimeout)
	defer cancel()

	err = s.client.XAdd(addCtx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"kind":  string(event.Kind),
			"asset": event.Asset,
			"event": payload,
		},
	}).Err()
	if err != nil {
		s.logger.Error("append ledger event", slog.String("id", event.ID), slog.String("stream", s.stream), slog.Any("error", err))
	}
}
