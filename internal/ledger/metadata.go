package ledger

import (
	"context"

	"github.com/congo-pay/assetledger/internal/events"
	"github.com/congo-pay/assetledger/internal/storage"
)

// SetMetadata replaces the metadata of asset as a whole.
func (l *Ledger) SetMetadata(ctx context.Context, asset AssetID, name, symbol []byte, decimals uint8) error {
	if len(name) > l.maxMetadataLength || len(symbol) > l.maxMetadataLength {
		return ErrBadMetadata
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	md := Metadata{
		Name:     append([]byte{}, name...),
		Symbol:   append([]byte{}, symbol...),
		Decimals: decimals,
	}
	err := l.store.Transactional(ctx, func(tx storage.Writer) error {
		if err := lockAsset(ctx, tx, asset); err != nil {
			return err
		}
		_, ok, err := loadAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}
		return putMetadata(ctx, tx, asset, md)
	})
	if err != nil {
		return err
	}

	ev := events.New(events.KindMetadataSet, string(asset))
	ev.Metadata = &events.Metadata{Name: string(md.Name), Symbol: string(md.Symbol), Decimals: md.Decimals}
	l.record(ctx, ev)
	return nil
}

// Metadata returns the metadata of asset, or the zero value when none was set.
func (l *Ledger) Metadata(ctx context.Context, asset AssetID) (Metadata, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	md, _, err := loadMetadata(ctx, l.store, asset)
	return md, err
}
