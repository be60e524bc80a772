package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a ledger event.
type Kind string

const (
	KindCreated     Kind = "created"
	KindDestroyed   Kind = "destroyed"
	KindIssued      Kind = "issued"
	KindBurned      Kind = "burned"
	KindTransferred Kind = "transferred"
	KindMetadataSet Kind = "metadata_set"
)

// Event describes a committed ledger change. Amount is a base-10 string so
// 256-bit values survive any sink encoding.
type Event struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Asset    string    `json:"asset"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Amount   string    `json:"amount,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	At       time.Time `json:"at"`
}

// Metadata carries the new asset metadata of a metadata_set event.
type Metadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// New stamps an event with a fresh identifier and the current time.
func New(kind Kind, asset string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Asset: asset, At: time.Now().UTC()}
}

// Sink receives ledger events. Record is fire-and-forget: the ledger never
// reads events back and a failing sink never undoes a committed change.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LoggerSink writes events to the structured logger.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink constructs a logging sink.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Record writes the event to the structured logger.
func (s *LoggerSink) Record(ctx context.Context, event Event) {
	if s == nil || s.logger == nil {
		return
	}
	attrs := []any{
		slog.String("id", event.ID),
		slog.String("kind", string(event.Kind)),
		slog.String("asset", event.Asset),
	}
	if event.From != "" {
		attrs = append(attrs, slog.String("from", event.From))
	}
	if event.To != "" {
		attrs = append(attrs, slog.String("to", event.To))
	}
	if event.Amount != "" {
		attrs = append(attrs, slog.String("amount", event.Amount))
	}
	if md := event.Metadata; md != nil {
		attrs = append(attrs,
			slog.String("name", md.Name),
			slog.String("symbol", md.Symbol),
			slog.Int("decimals", int(md.Decimals)),
		)
	}
	s.logger.InfoContext(ctx, "ledger event", attrs...)
}

// Multi fans an event out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Record(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, event)
		}
	}
}

// Recorder keeps events in memory. Useful for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record appends the event.
func (r *Recorder) Record(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event. ok is false when nothing was recorded.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
