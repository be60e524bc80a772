package ledger

import "errors"

var (
	// ErrUnknownAsset indicates the referenced asset has no record.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrOverflow occurs when a deposit, or the account count increment it
	// implies, would exceed the representable range.
	ErrOverflow = errors.New("overflow")

	// ErrUnderflow occurs when a withdrawal would drive the total supply below
	// zero while the account itself could cover it. This points at corrupt state.
	ErrUnderflow = errors.New("supply underflow")

	// ErrNoFunds occurs when the account lacks the balance for a withdrawal.
	ErrNoFunds = errors.New("insufficient funds")

	// ErrBadMetadata indicates a name or symbol longer than the configured limit.
	ErrBadMetadata = errors.New("bad metadata")

	// ErrInUse indicates the asset already exists, or still has supply or
	// accounts and cannot be destroyed.
	ErrInUse = errors.New("asset in use")

	// ErrInvalidAsset indicates a malformed asset identifier.
	ErrInvalidAsset = errors.New("invalid asset identifier")

	// ErrInternalInconsistency reports an invariant that prior validation should
	// have made unreachable.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
