package infra

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", DefaultRedisOptions)
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()
	if client.Options().ReadTimeout != DefaultRedisOptions.OpTimeout {
		t.Fatalf("expected read timeout %s, got %s", DefaultRedisOptions.OpTimeout, client.Options().ReadTimeout)
	}
}

func TestNewRedisClientGivesUpAfterAttempts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	opts := RedisOptions{ConnectAttempts: 3, RetryDelay: time.Millisecond}
	_, err = NewRedisClient(context.Background(), "redis://"+addr+"/0", opts)
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("expected failure after 3 attempts, got %v", err)
	}
}

func TestNewRedisClientWaitsForLateServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	go func() {
		time.Sleep(30 * time.Millisecond)
		mr.Restart() // nolint:errcheck
	}()
	defer mr.Close()

	opts := RedisOptions{ConnectAttempts: 8, RetryDelay: 10 * time.Millisecond}
	client, err := NewRedisClient(context.Background(), "redis://"+addr+"/0", opts)
	if err != nil {
		t.Fatalf("expected client once redis is up, got %v", err)
	}
	client.Close()
}

func TestRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "", DefaultRedisOptions); err == nil {
		t.Fatalf("expected error for empty redis url")
	}
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty database url")
	}
	if _, err := NewPostgresPool(context.Background(), "::not a url::"); err == nil {
		t.Fatalf("expected error for malformed database url")
	}
}
