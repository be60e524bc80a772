package ledger

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/congo-pay/assetledger/internal/events"
	"github.com/congo-pay/assetledger/internal/storage"
)

// Issue creates amount new units of asset in account. A zero amount changes
// nothing but is still recorded as an issued event.
func (l *Ledger) Issue(ctx context.Context, asset AssetID, account AccountID, amount *uint256.Int) error {
	amount = orZero(amount)

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsZero() {
		l.record(ctx, issuedEvent(asset, account, amount))
		return nil
	}

	var m mutation
	err := l.store.Transactional(ctx, func(tx storage.Writer) error {
		if err := lockAsset(ctx, tx, asset); err != nil {
			return err
		}
		verdict, err := canDeposit(ctx, tx, asset, account, amount)
		if err != nil {
			return err
		}
		if err := verdict.Err(); err != nil {
			return err
		}

		rec, ok, err := loadAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}
		if err := tx.Transactional(ctx, func(acct storage.Writer) error {
			balance, err := loadBalance(ctx, acct, asset, account)
			if err != nil {
				return err
			}
			if balance.IsZero() {
				if err := l.accountFunded(&m, asset, account, &rec); err != nil {
					return err
				}
			}
			rec.Supply = saturatingAdd(rec.Supply, amount)
			return putBalance(ctx, acct, asset, account, saturatingAdd(balance, amount))
		}); err != nil {
			return err
		}
		return putAsset(ctx, tx, asset, rec)
	})
	if err != nil {
		return err
	}

	l.applyReferences(ctx, &m)
	l.record(ctx, issuedEvent(asset, account, amount))
	return nil
}

// Burn destroys amount units of asset held by account. The account entry is
// removed when its balance reaches zero. A zero amount changes nothing but is
// still recorded as a burned event.
func (l *Ledger) Burn(ctx context.Context, asset AssetID, account AccountID, amount *uint256.Int) error {
	amount = orZero(amount)

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsZero() {
		l.record(ctx, burnedEvent(asset, account, amount))
		return nil
	}

	var m mutation
	err := l.store.Transactional(ctx, func(tx storage.Writer) error {
		if err := lockAsset(ctx, tx, asset); err != nil {
			return err
		}
		verdict, err := canWithdraw(ctx, tx, asset, account, amount)
		if err != nil {
			return err
		}
		if err := verdict.Err(); err != nil {
			return err
		}

		rec, ok, err := loadAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}
		if err := tx.Transactional(ctx, func(acct storage.Writer) error {
			balance, err := loadBalance(ctx, acct, asset, account)
			if err != nil {
				return err
			}
			remaining := saturatingSub(balance, amount)
			rec.Supply = saturatingSub(rec.Supply, amount)
			if remaining.IsZero() {
				if err := l.accountEmptied(&m, asset, account, &rec); err != nil {
					return err
				}
			}
			return putBalance(ctx, acct, asset, account, remaining)
		}); err != nil {
			return err
		}
		return putAsset(ctx, tx, asset, rec)
	})
	if err != nil {
		return err
	}

	l.applyReferences(ctx, &m)
	l.record(ctx, burnedEvent(asset, account, amount))
	return nil
}

// Transfer moves amount units of asset from source to dest. Zero amounts and
// self transfers leave balances alone but are still recorded as transferred
// events.
func (l *Ledger) Transfer(ctx context.Context, asset AssetID, source, dest AccountID, amount *uint256.Int) error {
	amount = orZero(amount)

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok, err := loadAsset(ctx, l.store, asset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownAsset
	}

	if amount.IsZero() || source == dest {
		l.record(ctx, transferredEvent(asset, source, dest, amount))
		return nil
	}

	var m mutation
	err = l.store.Transactional(ctx, func(tx storage.Writer) error {
		if err := lockAsset(ctx, tx, asset); err != nil {
			return err
		}
		withdraw, err := canWithdraw(ctx, tx, asset, source, amount)
		if err != nil {
			return err
		}
		if err := withdraw.Err(); err != nil {
			return err
		}
		deposit, err := canDeposit(ctx, tx, asset, dest, amount)
		if err != nil {
			return err
		}
		if err := deposit.Err(); err != nil {
			return err
		}

		rec, ok, err := loadAsset(ctx, tx, asset)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}
		if err := tx.Transactional(ctx, func(acct storage.Writer) error {
			// Both balances are read before any write so that neither side
			// observes the other half of the move.
			sourceBalance, err := loadBalance(ctx, acct, asset, source)
			if err != nil {
				return err
			}
			destBalance, err := loadBalance(ctx, acct, asset, dest)
			if err != nil {
				return err
			}

			sourceRemaining := saturatingSub(sourceBalance, amount)
			if sourceRemaining.IsZero() {
				if err := l.accountEmptied(&m, asset, source, &rec); err != nil {
					return err
				}
			}
			if err := putBalance(ctx, acct, asset, source, sourceRemaining); err != nil {
				return err
			}

			if destBalance.IsZero() {
				if err := l.accountFunded(&m, asset, dest, &rec); err != nil {
					return err
				}
			}
			return putBalance(ctx, acct, asset, dest, saturatingAdd(destBalance, amount))
		}); err != nil {
			return err
		}
		return putAsset(ctx, tx, asset, rec)
	})
	if err != nil {
		return err
	}

	l.applyReferences(ctx, &m)
	l.record(ctx, transferredEvent(asset, source, dest, amount))
	return nil
}

func orZero(amount *uint256.Int) *uint256.Int {
	if amount == nil {
		return zero()
	}
	return amount
}

func issuedEvent(asset AssetID, account AccountID, amount *uint256.Int) events.Event {
	ev := events.New(events.KindIssued, string(asset))
	ev.To = string(account)
	ev.Amount = amount.Dec()
	return ev
}

func burnedEvent(asset AssetID, account AccountID, amount *uint256.Int) events.Event {
	ev := events.New(events.KindBurned, string(asset))
	ev.From = string(account)
	ev.Amount = amount.Dec()
	return ev
}

func transferredEvent(asset AssetID, source, dest AccountID, amount *uint256.Int) events.Event {
	ev := events.New(events.KindTransferred, string(asset))
	ev.From = string(source)
	ev.To = string(dest)
	ev.Amount = amount.Dec()
	return ev
}
