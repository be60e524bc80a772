package ledger

import (
	"context"
	"math"

	"github.com/holiman/uint256"

	"github.com/congo-pay/assetledger/internal/storage"
)

// DepositVerdict is the outcome of checking whether a balance may increase.
type DepositVerdict int

const (
	DepositSuccess DepositVerdict = iota
	DepositUnknownAsset
	DepositOverflow
)

func (v DepositVerdict) String() string {
	switch v {
	case DepositSuccess:
		return "success"
	case DepositUnknownAsset:
		return "unknown_asset"
	case DepositOverflow:
		return "overflow"
	default:
		return "invalid"
	}
}

// Err maps the verdict onto the error the operation fails with; nil on success.
func (v DepositVerdict) Err() error {
	switch v {
	case DepositSuccess:
		return nil
	case DepositUnknownAsset:
		return ErrUnknownAsset
	default:
		return ErrOverflow
	}
}

// WithdrawVerdict is the outcome of checking whether a balance may decrease.
type WithdrawVerdict int

const (
	WithdrawSuccess WithdrawVerdict = iota
	WithdrawUnknownAsset
	WithdrawUnderflow
	WithdrawNoFunds
)

func (v WithdrawVerdict) String() string {
	switch v {
	case WithdrawSuccess:
		return "success"
	case WithdrawUnknownAsset:
		return "unknown_asset"
	case WithdrawUnderflow:
		return "underflow"
	case WithdrawNoFunds:
		return "no_funds"
	default:
		return "invalid"
	}
}

// Err maps the verdict onto the error the operation fails with; nil on success.
func (v WithdrawVerdict) Err() error {
	switch v {
	case WithdrawSuccess:
		return nil
	case WithdrawUnknownAsset:
		return ErrUnknownAsset
	case WithdrawUnderflow:
		return ErrUnderflow
	default:
		return ErrNoFunds
	}
}

// CanDeposit reports whether amount can be added to account's balance of
// asset. It never mutates state. The error is non-nil only on storage failure.
func (l *Ledger) CanDeposit(ctx context.Context, asset AssetID, account AccountID, amount *uint256.Int) (DepositVerdict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return canDeposit(ctx, l.store, asset, account, amount)
}

// CanWithdraw reports whether amount can be removed from account's balance of
// asset. It never mutates state. The error is non-nil only on storage failure.
func (l *Ledger) CanWithdraw(ctx context.Context, asset AssetID, account AccountID, amount *uint256.Int) (WithdrawVerdict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return canWithdraw(ctx, l.store, asset, account, amount)
}

func canDeposit(ctx context.Context, r storage.Reader, asset AssetID, account AccountID, amount *uint256.Int) (DepositVerdict, error) {
	rec, ok, err := loadAsset(ctx, r, asset)
	if err != nil {
		return DepositUnknownAsset, err
	}
	if !ok {
		return DepositUnknownAsset, nil
	}
	if _, overflow := new(uint256.Int).AddOverflow(rec.Supply, amount); overflow {
		return DepositOverflow, nil
	}

	balance, err := loadBalance(ctx, r, asset, account)
	if err != nil {
		return DepositUnknownAsset, err
	}
	// A zero balance means a new account entry, which the counter must be able to hold.
	if balance.IsZero() && !amount.IsZero() && rec.Accounts == math.MaxUint32 {
		return DepositOverflow, nil
	}
	if _, overflow := new(uint256.Int).AddOverflow(balance, amount); overflow {
		return DepositOverflow, nil
	}
	return DepositSuccess, nil
}

func canWithdraw(ctx context.Context, r storage.Reader, asset AssetID, account AccountID, amount *uint256.Int) (WithdrawVerdict, error) {
	rec, ok, err := loadAsset(ctx, r, asset)
	if err != nil {
		return WithdrawUnknownAsset, err
	}
	if !ok {
		return WithdrawUnknownAsset, nil
	}
	supplyShort := rec.Supply.Lt(amount)

	balance, err := loadBalance(ctx, r, asset, account)
	if err != nil {
		return WithdrawUnknownAsset, err
	}
	// The account shortfall is the precise cause whenever it applies; a supply
	// shortfall on its own means supply and balances disagree.
	if balance.Lt(amount) {
		return WithdrawNoFunds, nil
	}
	if supplyShort {
		return WithdrawUnderflow, nil
	}
	return WithdrawSuccess, nil
}
