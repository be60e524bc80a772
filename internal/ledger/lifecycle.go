package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

const referenceTimeout = 2 * time.Second

// referenceChange is a reference counter call held back until its scope commits.
type referenceChange struct {
	account   AccountID
	increment bool
}

// mutation collects the deferred side effects of one operation.
type mutation struct {
	references []referenceChange
}

// accountFunded records that account just received its first unit of asset.
func (l *Ledger) accountFunded(m *mutation, asset AssetID, account AccountID, rec *AssetRecord) error {
	if rec.Accounts == math.MaxUint32 {
		l.logger.Error("account count overflow after successful deposit check",
			slog.String("asset", string(asset)),
			slog.String("account", string(account)),
		)
		return fmt.Errorf("%w: account count of %s overflows", ErrInternalInconsistency, asset)
	}
	rec.Accounts++
	m.references = append(m.references, referenceChange{account: account, increment: true})
	return nil
}

// accountEmptied records that account's balance of asset reached zero. The
// account count is a derived cache and never blocks the withdrawal that
// empties an account: outside strict mode a count already at zero is logged
// and left alone.
func (l *Ledger) accountEmptied(m *mutation, asset AssetID, account AccountID, rec *AssetRecord) error {
	if rec.Accounts == 0 {
		l.logger.Warn("account count underflow while removing account",
			slog.String("asset", string(asset)),
			slog.String("account", string(account)),
			slog.Bool("strict", l.strict),
		)
		if l.strict {
			return fmt.Errorf("%w: account count of %s underflows", ErrInternalInconsistency, asset)
		}
	} else {
		rec.Accounts--
	}
	m.references = append(m.references, referenceChange{account: account, increment: false})
	return nil
}

// applyReferences hands the committed reference changes to the collaborator.
// State is already committed, so the calls outlive the caller's context and
// failures are reported and not returned.
func (l *Ledger) applyReferences(ctx context.Context, m *mutation) {
	if len(m.references) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), referenceTimeout)
	defer cancel()

	for _, change := range m.references {
		direction := "decrement"
		var err error
		if change.increment {
			direction = "increment"
			err = l.refs.Increment(ctx, string(change.account))
		} else {
			err = l.refs.Decrement(ctx, string(change.account))
		}
		if err == nil {
			continue
		}
		l.logger.Error("reference counter update failed",
			slog.String("account", string(change.account)),
			slog.String("direction", direction),
			slog.Any("error", err),
		)
		if l.referenceFailed != nil {
			l.referenceFailed(direction)
		}
	}
}
