package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/assetledger/internal/logging"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	sink := Multi(a, nil, b)

	ev := New(KindIssued, "eth")
	ev.To = "alice"
	ev.Amount = "100"
	sink.Record(context.Background(), ev)

	for i, r := range []*Recorder{a, b} {
		got, ok := r.Last()
		if !ok {
			t.Fatalf("recorder %d: expected an event", i)
		}
		if got.ID != ev.ID || got.Kind != KindIssued {
			t.Fatalf("recorder %d: unexpected event %+v", i, got)
		}
	}
}

func TestLoggerSinkToleratesNil(t *testing.T) {
	var s *LoggerSink
	s.Record(context.Background(), New(KindCreated, "eth"))
	NewLoggerSink(logging.Discard()).Record(context.Background(), New(KindCreated, "eth"))
}

func TestRedisStreamSink(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisStreamSink(client, "", logging.Discard())
	ev := New(KindTransferred, "eth")
	ev.From, ev.To, ev.Amount = "alice", "bob", "42"
	sink.Record(context.Background(), ev)

	entries, err := client.XRange(context.Background(), defaultStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}
	if entries[0].Values["kind"] != string(KindTransferred) {
		t.Fatalf("unexpected kind %v", entries[0].Values["kind"])
	}
	raw, _ := entries[0].Values["event"].(string)
	var decoded Event
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if decoded.ID != ev.ID || decoded.Amount != "42" || decoded.From != "alice" {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestMetadataEventEncoding(t *testing.T) {
	ev := New(KindMetadataSet, "eth")
	ev.Metadata = &Metadata{Name: "Ether", Symbol: "ETH", Decimals: 0}

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"name":"Ether"`, `"symbol":"ETH"`, `"decimals":0`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %s in %s", want, raw)
		}
	}

	transfer, err := json.Marshal(New(KindTransferred, "eth"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(transfer), "metadata") {
		t.Fatalf("transfer event carries metadata: %s", transfer)
	}
}
