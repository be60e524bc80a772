package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"

	"github.com/congo-pay/assetledger/internal/events"
	"github.com/congo-pay/assetledger/internal/refcount"
	"github.com/congo-pay/assetledger/internal/storage"
)

// DefaultMaxMetadataLength bounds asset names and symbols when no limit is configured.
const DefaultMaxMetadataLength = 50

// Ledger tracks supply and per-account balances of many assets on top of a
// transactional key-value store.
//
// Within one instance, mutations hold the write lock and reads the read lock.
// Instances sharing a store are serialized per asset by a store lock taken at
// the start of every mutation scope; the verdict is computed under that lock.
// A mutation either commits fully or leaves the store untouched; reference
// counter calls and events happen only after commit.
type Ledger struct {
	mu     sync.RWMutex
	store  storage.Store
	refs   refcount.Counter
	sink   events.Sink
	logger *slog.Logger

	maxMetadataLength int
	strict            bool
	referenceFailed   func(direction string)
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithReferenceCounter sets the account reference collaborator.
func WithReferenceCounter(refs refcount.Counter) Option {
	return func(l *Ledger) {
		l.refs = refs
	}
}

// WithEventSink sets where committed events are recorded.
func WithEventSink(sink events.Sink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

// WithMaxMetadataLength bounds the byte length of asset names and symbols.
func WithMaxMetadataLength(n int) Option {
	return func(l *Ledger) {
		l.maxMetadataLength = n
	}
}

// WithStrictInvariants makes unreachable invariant violations fail the
// operation with ErrInternalInconsistency instead of being logged and saturated.
func WithStrictInvariants(strict bool) Option {
	return func(l *Ledger) {
		l.strict = strict
	}
}

// WithReferenceFailureHook is called whenever a reference counter call fails
// after commit. direction is "increment" or "decrement".
func WithReferenceFailureHook(fn func(direction string)) Option {
	return func(l *Ledger) {
		l.referenceFailed = fn
	}
}

// New creates a ledger over store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:             store,
		refs:              refcount.NewMemory(),
		sink:              events.Multi(),
		logger:            slog.Default(),
		maxMetadataLength: DefaultMaxMetadataLength,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Balance returns the balance of account in asset; zero when absent.
func (l *Ledger) Balance(ctx context.Context, asset AssetID, account AccountID) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return loadBalance(ctx, l.store, asset, account)
}

// Supply returns the total supply of asset; zero for unknown assets.
func (l *Ledger) Supply(ctx context.Context, asset AssetID) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok, err := loadAsset(ctx, l.store, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return zero(), nil
	}
	return rec.Supply, nil
}

// Asset returns the record of asset.
func (l *Ledger) Asset(ctx context.Context, asset AssetID) (AssetRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok, err := loadAsset(ctx, l.store, asset)
	if err != nil {
		return AssetRecord{}, err
	}
	if !ok {
		return AssetRecord{}, ErrUnknownAsset
	}
	return rec, nil
}

// Accounts lists every stored balance of asset in key order.
func (l *Ledger) Accounts(ctx context.Context, asset AssetID) ([]AccountBalance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []AccountBalance
	err := l.store.Iterate(ctx, accountsOf(asset), func(_, value []byte) error {
		entry, err := decodeBalance(value)
		if err != nil {
			return err
		}
		out = append(out, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts of %s: %w", asset, err)
	}
	return out, nil
}

func (l *Ledger) record(ctx context.Context, event events.Event) {
	l.sink.Record(ctx, event)
}
