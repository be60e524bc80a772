package server

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/assetledger/internal/config"
	"github.com/congo-pay/assetledger/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:           "AssetLedger",
		AppEnv:            "test",
		Port:              "0",
		IdempotencyTTL:    time.Minute,
		MaxMetadataLength: 50,
		EventStream:       "ledger:events",
	}
}

func request(t *testing.T, app *fiber.App, method, path, caller, key, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if caller != "" {
		req.Header.Set("X-Account-ID", caller)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func TestServerWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	srv, err := New(context.Background(), testConfig(), nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app := srv.App()

	if status, body := request(t, app, fiber.MethodPost, "/api/v1/assets", "admin", "k-create", `{"asset":"eth"}`); status != fiber.StatusCreated {
		t.Fatalf("create: %d %s", status, body)
	}

	// A retried issue is applied once.
	for i := 0; i < 2; i++ {
		if status, body := request(t, app, fiber.MethodPost, "/api/v1/assets/eth/issue", "admin", "k-issue", `{"account":"alice","amount":"100"}`); status != fiber.StatusOK {
			t.Fatalf("issue attempt %d: %d %s", i, status, body)
		}
	}
	if _, body := request(t, app, fiber.MethodGet, "/api/v1/assets/eth", "", "", ""); !strings.Contains(body, `"supply":"100"`) {
		t.Fatalf("expected supply 100 after retried issue, got %s", body)
	}

	if status, body := request(t, app, fiber.MethodPost, "/api/v1/assets/eth/transfers", "alice", "k-transfer", `{"to":"bob","amount":"30"}`); status != fiber.StatusOK {
		t.Fatalf("transfer: %d %s", status, body)
	}

	ctx := context.Background()
	if refs, err := cache.Get(ctx, "refs:v1:bob").Uint64(); err != nil || refs != 1 {
		t.Fatalf("expected one reference for bob, got %d (%v)", refs, err)
	}
	stream, err := cache.XRange(ctx, "ledger:events", "-", "+").Result()
	if err != nil {
		t.Fatalf("read event stream: %v", err)
	}
	if len(stream) != 3 {
		t.Fatalf("expected created, issued and transferred events, got %d", len(stream))
	}

	status, body := request(t, app, fiber.MethodGet, "/metrics", "", "", "")
	if status != fiber.StatusOK || !strings.Contains(body, `assetledger_events_total{kind="transferred"} 1`) {
		t.Fatalf("metrics: %d %s", status, body)
	}

	if status, body := request(t, app, fiber.MethodGet, "/healthz", "", "", ""); status != fiber.StatusOK {
		t.Fatalf("healthz: %d %s", status, body)
	}
	mr.Close()
	if status, _ := request(t, app, fiber.MethodGet, "/healthz", "", "", ""); status != fiber.StatusServiceUnavailable {
		t.Fatalf("healthz with redis down: expected 503 got %d", status)
	}
}

func TestServerWithoutBackends(t *testing.T) {
	srv, err := New(context.Background(), testConfig(), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	app := srv.App()

	if status, body := request(t, app, fiber.MethodPost, "/api/v1/assets", "admin", "k1", `{"asset":"eth"}`); status != fiber.StatusCreated {
		t.Fatalf("create: %d %s", status, body)
	}
	if status, _ := request(t, app, fiber.MethodPost, "/api/v1/assets", "admin", "", `{"asset":"dot"}`); status != fiber.StatusBadRequest {
		t.Fatalf("missing idempotency key: expected 400 got %d", status)
	}
	if status, body := request(t, app, fiber.MethodGet, "/healthz", "", "", ""); status != fiber.StatusOK || !strings.Contains(body, `"redis":"disabled"`) {
		t.Fatalf("healthz: %d %s", status, body)
	}
}

func TestServerRequiresRedisOutsideDevelopment(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	if _, err := New(context.Background(), cfg, nil, nil, logging.Discard()); err == nil {
		t.Fatalf("expected error without redis in production")
	}
}
