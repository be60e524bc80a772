package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// AssetID identifies an asset class.
type AssetID string

// AccountID identifies a ledger participant.
type AccountID string

const (
	// EtherAsset is the bridged native ether.
	EtherAsset AssetID = "eth"

	tokenAssetPrefix = "token:0x"
	h160Len          = 20
)

// TokenAsset returns the identifier of the bridged ERC-20 token at addr. The
// address must be 20 bytes of hex, with or without a 0x prefix; it is
// normalised to lower case.
func TokenAsset(addr string) (AssetID, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: token address %q: %v", ErrInvalidAsset, addr, err)
	}
	if len(b) != h160Len {
		return "", fmt.Errorf("%w: token address must be %d bytes, got %d", ErrInvalidAsset, h160Len, len(b))
	}
	return AssetID(tokenAssetPrefix + hex.EncodeToString(b)), nil
}

// AssetRecord is the asset level state.
type AssetRecord struct {
	Supply   *uint256.Int
	Accounts uint32
}

// AccountBalance is a stored, non-zero balance of one account.
type AccountBalance struct {
	Account AccountID
	Balance *uint256.Int
}

// Metadata is optional descriptive data of an asset.
type Metadata struct {
	Name     []byte
	Symbol   []byte
	Decimals uint8
}

func zero() *uint256.Int {
	return new(uint256.Int)
}

// saturatingAdd and saturatingSub apply changes the evaluator has already
// proven safe. They must never run without a prior verdict.
func saturatingAdd(a, b *uint256.Int) *uint256.Int {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return sum
}

func saturatingSub(a, b *uint256.Int) *uint256.Int {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return zero()
	}
	return diff
}
