package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"

	"github.com/congo-pay/assetledger/internal/storage"
)

// State layout
//
//	asset/    blake2_128_concat(asset)                           => assetRecordJSON
//	account/  blake2_128_concat(asset) blake2_128_concat(account) => accountBalanceJSON
//	metadata/ blake2_128_concat(asset)                           => metadataJSON
//
// blake2_128_concat(x) is the 16 byte BLAKE2b digest of x followed by x, which
// spreads keys evenly while keeping every account of an asset under one prefix.
var (
	assetPrefix    = []byte("asset/")
	accountPrefix  = []byte("account/")
	metadataPrefix = []byte("metadata/")
)

func blake2128Concat(dst []byte, id string) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(fmt.Sprintf("blake2b-128: %v", err))
	}
	h.Write([]byte(id))
	dst = h.Sum(dst)
	return append(dst, id...)
}

func assetKey(asset AssetID) []byte {
	return blake2128Concat(append([]byte{}, assetPrefix...), string(asset))
}

// lockAsset serializes every scope that touches asset, across ledger
// instances sharing the store. Every mutation takes it before reading.
func lockAsset(ctx context.Context, tx storage.Writer, asset AssetID) error {
	if err := tx.Lock(ctx, assetKey(asset)); err != nil {
		return fmt.Errorf("lock asset %s: %w", asset, err)
	}
	return nil
}

func accountsOf(asset AssetID) []byte {
	return blake2128Concat(append([]byte{}, accountPrefix...), string(asset))
}

func accountKey(asset AssetID, account AccountID) []byte {
	return blake2128Concat(accountsOf(asset), string(account))
}

func metadataKey(asset AssetID) []byte {
	return blake2128Concat(append([]byte{}, metadataPrefix...), string(asset))
}

type assetRecordJSON struct {
	Supply   string `json:"supply"`
	Accounts uint32 `json:"accounts"`
}

type accountBalanceJSON struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type metadataJSON struct {
	Name     []byte `json:"name"`
	Symbol   []byte `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

func loadAsset(ctx context.Context, r storage.Reader, asset AssetID) (AssetRecord, bool, error) {
	raw, ok, err := r.Get(ctx, assetKey(asset))
	if err != nil {
		return AssetRecord{}, false, fmt.Errorf("load asset %s: %w", asset, err)
	}
	if !ok {
		return AssetRecord{}, false, nil
	}
	var rec assetRecordJSON
	if err := json.Unmarshal(raw, &rec); err != nil {
		return AssetRecord{}, false, fmt.Errorf("decode asset %s: %w", asset, err)
	}
	supply, err := uint256.FromDecimal(rec.Supply)
	if err != nil {
		return AssetRecord{}, false, fmt.Errorf("decode supply of %s: %w", asset, err)
	}
	return AssetRecord{Supply: supply, Accounts: rec.Accounts}, true, nil
}

func putAsset(ctx context.Context, w storage.Writer, asset AssetID, rec AssetRecord) error {
	raw, err := json.Marshal(assetRecordJSON{Supply: rec.Supply.Dec(), Accounts: rec.Accounts})
	if err != nil {
		return fmt.Errorf("encode asset %s: %w", asset, err)
	}
	if err := w.Put(ctx, assetKey(asset), raw); err != nil {
		return fmt.Errorf("store asset %s: %w", asset, err)
	}
	return nil
}

func decodeBalance(raw []byte) (AccountBalance, error) {
	var entry accountBalanceJSON
	if err := json.Unmarshal(raw, &entry); err != nil {
		return AccountBalance{}, err
	}
	balance, err := uint256.FromDecimal(entry.Balance)
	if err != nil {
		return AccountBalance{}, err
	}
	return AccountBalance{Account: AccountID(entry.Account), Balance: balance}, nil
}

// loadBalance returns zero for accounts without an entry.
func loadBalance(ctx context.Context, r storage.Reader, asset AssetID, account AccountID) (*uint256.Int, error) {
	raw, ok, err := r.Get(ctx, accountKey(asset, account))
	if err != nil {
		return nil, fmt.Errorf("load balance %s/%s: %w", asset, account, err)
	}
	if !ok {
		return zero(), nil
	}
	entry, err := decodeBalance(raw)
	if err != nil {
		return nil, fmt.Errorf("decode balance %s/%s: %w", asset, account, err)
	}
	return entry.Balance, nil
}

// putBalance stores a balance, removing the entry when it is zero so that a
// zero balance is only ever represented by absence.
func putBalance(ctx context.Context, w storage.Writer, asset AssetID, account AccountID, balance *uint256.Int) error {
	key := accountKey(asset, account)
	if balance.IsZero() {
		if err := w.Delete(ctx, key); err != nil {
			return fmt.Errorf("remove balance %s/%s: %w", asset, account, err)
		}
		return nil
	}
	raw, err := json.Marshal(accountBalanceJSON{Account: string(account), Balance: balance.Dec()})
	if err != nil {
		return fmt.Errorf("encode balance %s/%s: %w", asset, account, err)
	}
	if err := w.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("store balance %s/%s: %w", asset, account, err)
	}
	return nil
}

func loadMetadata(ctx context.Context, r storage.Reader, asset AssetID) (Metadata, bool, error) {
	raw, ok, err := r.Get(ctx, metadataKey(asset))
	if err != nil {
		return Metadata{}, false, fmt.Errorf("load metadata %s: %w", asset, err)
	}
	if !ok {
		return Metadata{}, false, nil
	}
	var md metadataJSON
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, false, fmt.Errorf("decode metadata %s: %w", asset, err)
	}
	return Metadata{Name: md.Name, Symbol: md.Symbol, Decimals: md.Decimals}, true, nil
}

func putMetadata(ctx context.Context, w storage.Writer, asset AssetID, md Metadata) error {
	raw, err := json.Marshal(metadataJSON{Name: md.Name, Symbol: md.Symbol, Decimals: md.Decimals})
	if err != nil {
		return fmt.Errorf("encode metadata %s: %w", asset, err)
	}
	if err := w.Put(ctx, metadataKey(asset), raw); err != nil {
		return fmt.Errorf("store metadata %s: %w", asset, err)
	}
	return nil
}
