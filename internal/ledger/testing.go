package ledger

import (
	"context"

	"github.com/holiman/uint256"
)

// SeedSupply overwrites the recorded supply of asset without touching any
// balance. It exists to put the ledger into states tests cannot reach through
// the public operations, such as supply and balances disagreeing.
func SeedSupply(ctx context.Context, l *Ledger, asset AssetID, supply *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok, err := loadAsset(ctx, l.store, asset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}
	rec.Supply = supply.Clone()
	return putAsset(ctx, l.store, asset, rec)
}

// SeedAccountCount overwrites the recorded account count of asset.
func SeedAccountCount(ctx context.Context, l *Ledger, asset AssetID, accounts uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok, err := loadAsset(ctx, l.store, asset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}
	rec.Accounts = accounts
	return putAsset(ctx, l.store, asset, rec)
}
