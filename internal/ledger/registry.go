package ledger

import (
	"context"
	"fmt"

	"github.com/congo-pay/assetledger/internal/events"
	"github.com/congo-pay/assetledger/internal/storage"
)

// Create registers asset with zero supply. Balance operations on an asset
// fail with ErrUnknownAsset until it is created.
func (l *Ledger) Create(ctx context.Context, asset AssetID) error {
	if asset == "" {
		return ErrInvalidAsset
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Transactional(ctx, func(tx storage.Writer) error {
		if err := lockAsset(ctx, tx, asset); err != nil {
			return err
		}
		_, exists, err := loadAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if exists {
			return ErrInUse
		}
		return putAsset(ctx, tx, asset, AssetRecord{Supply: zero()})
	})
	if err != nil {
		return err
	}

	l.record(ctx, events.New(events.KindCreated, string(asset)))
	return nil
}

// Destroy removes an asset that has no supply and no accounts, together with
// its metadata.
func (l *Ledger) Destroy(ctx context.Context, asset AssetID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Transactional(ctx, func(tx storage.Writer) error {
		if err := lockAsset(ctx, tx, asset); err != nil {
			return err
		}
		rec, ok, err := loadAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}
		if !rec.Supply.IsZero() || rec.Accounts != 0 {
			return ErrInUse
		}
		if err := tx.Delete(ctx, metadataKey(asset)); err != nil {
			return fmt.Errorf("remove metadata %s: %w", asset, err)
		}
		if err := tx.Delete(ctx, assetKey(asset)); err != nil {
			return fmt.Errorf("remove asset %s: %w", asset, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.record(ctx, events.New(events.KindDestroyed, string(asset)))
	return nil
}
