package bitsharesclient

import (
	"context"
	"encoding/hex"

	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

// FakeChain is a hand-written in-memory BitsharesChain used by this
// package's and the orchestrator's tests. Callers set its fields directly
// to script the desired responses; it is not a generated mock.
type FakeChain struct {
	Created      []HTLCCreateParams
	HTLCsByID    map[string]htlcObject
	AccountIDs   map[string]string // name -> account id
	KeyAccounts  map[string]string // WIF -> account id
	RedeemResult map[string]bool   // htlcID -> whether Redeem succeeds
	RedeemErr    error
	ClosedCount  int
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		HTLCsByID:    make(map[string]htlcObject),
		AccountIDs:   make(map[string]string),
		KeyAccounts:  make(map[string]string),
		RedeemResult: make(map[string]bool),
	}
}

// AddHTLC seeds an HTLC as if broadcast on chain, for tests outside this
// package that cannot construct the unexported htlcObject directly.
// preimageHex may be empty to model an unredeemed HTLC.
func (f *FakeChain) AddHTLC(id, from, to string, amount uint64, hashHex string, timeLockSeconds int, preimageHex string) {
	f.HTLCsByID[id] = htlcObject{
		ID:              id,
		From:            from,
		To:              to,
		Amount:          amount,
		HashHex:         hashHex,
		TimeLockSeconds: timeLockSeconds,
		PreimageHex:     preimageHex,
	}
}

func (f *FakeChain) Create(ctx context.Context, params HTLCCreateParams) error {
	f.Created = append(f.Created, params)
	return nil
}

func (f *FakeChain) Redeem(ctx context.Context, htlcID string, amount uint64, privateKeyWIF string, preimage []byte) (bool, error) {
	if f.RedeemErr != nil {
		return false, f.RedeemErr
	}
	ok, known := f.RedeemResult[htlcID]
	if !known {
		return false, nil
	}
	if ok {
		obj := f.HTLCsByID[htlcID]
		obj.PreimageHex = hex.EncodeToString(preimage)
		f.HTLCsByID[htlcID] = obj
	}
	return ok, nil
}

func (f *FakeChain) GetID(ctx context.Context, from, to string, amount uint64, hash [32]byte, timeSeconds int) (string, bool, error) {
	hashHex := hex.EncodeToString(hash[:])
	for id, obj := range f.HTLCsByID {
		if obj.From == from && obj.To == to && obj.Amount == amount && obj.HashHex == hashHex && obj.TimeLockSeconds == timeSeconds {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (f *FakeChain) GetPreimageFromHTLC(ctx context.Context, from, to, hashHex string) (string, bool, error) {
	for _, obj := range f.HTLCsByID {
		if obj.From == from && obj.To == to && obj.HashHex == hashHex {
			if obj.PreimageHex == "" {
				return "", false, nil
			}
			return obj.PreimageHex, true, nil
		}
	}
	return "", false, nil
}

func (f *FakeChain) ToAccountID(ctx context.Context, privateKeyWIF string) (string, error) {
	id, ok := f.KeyAccounts[privateKeyWIF]
	if !ok {
		return "", swaperrors.NewNotFoundError("account for private key")
	}
	return id, nil
}

func (f *FakeChain) GetAccountID(ctx context.Context, name string) (string, error) {
	id, ok := f.AccountIDs[name]
	if !ok {
		return "", swaperrors.NewNotFoundError("account " + name)
	}
	return id, nil
}

func (f *FakeChain) Close() error {
	f.ClosedCount++
	return nil
}

var _ BitsharesChain = (*FakeChain)(nil)
