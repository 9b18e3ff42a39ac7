package bitcoinchain

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/wire"

	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

// FakeChain is a hand-written in-memory BitcoinChain used by this package's
// and the engine/orchestrator packages' tests. It is not a mock framework -
// callers set its fields directly to script the desired responses.
type FakeChain struct {
	UTXOs            map[string][]UTXOOutput
	Fees             FeeEstimates
	Tip              BlockTip
	Confirmations    map[string]int64 // txid -> height, absent means unconfirmed
	LastFunding      map[string]FundingTx
	LastSpendWitness map[string][]string // address -> hex witness items
	PushedTxs        []string
	PushErr          error
	Headers          map[int64]BlockHeader
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		UTXOs:            make(map[string][]UTXOOutput),
		Confirmations:    make(map[string]int64),
		LastFunding:      make(map[string]FundingTx),
		LastSpendWitness: make(map[string][]string),
	}
}

func (f *FakeChain) GetUTXOs(ctx context.Context, txid string) ([]UTXOOutput, error) {
	outs, ok := f.UTXOs[txid]
	if !ok {
		return nil, swaperrors.NewNotFoundError("tx " + txid)
	}
	return outs, nil
}

func (f *FakeChain) GetFeeEstimates(ctx context.Context) (FeeEstimates, error) {
	return f.Fees, nil
}

func (f *FakeChain) GetLastBlock(ctx context.Context) (BlockTip, error) {
	return f.Tip, nil
}

func (f *FakeChain) GetBlockHeaderAtHeight(ctx context.Context, height int64) (BlockHeader, error) {
	h, ok := f.Headers[height]
	if !ok {
		return BlockHeader{}, swaperrors.NewNotFoundError("header at height")
	}
	return h, nil
}

func (f *FakeChain) GetBlockHeightForTx(ctx context.Context, txid string) (int64, bool, error) {
	h, ok := f.Confirmations[txid]
	return h, ok, nil
}

func (f *FakeChain) GetValueFromLastTransaction(ctx context.Context, address string) (FundingTx, error) {
	tx, ok := f.LastFunding[address]
	if !ok {
		return FundingTx{}, swaperrors.NewNotFoundError("funding for " + address)
	}
	return tx, nil
}

func (f *FakeChain) GetPreimageFromLastTransaction(ctx context.Context, address string) ([]byte, error) {
	witness, ok := f.LastSpendWitness[address]
	if !ok {
		return nil, swaperrors.NewNotFoundError("spend of " + address)
	}
	if len(witness) != 5 {
		return nil, swaperrors.NewMalformedWitnessError("wrong witness length")
	}
	selector, err := hex.DecodeString(witness[3])
	if err != nil || len(selector) != 1 || selector[0] != 0x01 {
		return nil, swaperrors.NewMalformedWitnessError("not a claim witness")
	}
	preimage, err := hex.DecodeString(witness[2])
	if err != nil || len(preimage) != 32 {
		return nil, swaperrors.NewMalformedWitnessError("preimage not 32 bytes")
	}
	return preimage, nil
}

func (f *FakeChain) PushTX(ctx context.Context, rawHex string) (string, error) {
	if f.PushErr != nil {
		return "", swaperrors.NewBroadcastError(rawHex, f.PushErr)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(hex.NewDecoder(strings.NewReader(rawHex))); err != nil {
		return "", swaperrors.NewBroadcastError(rawHex, err)
	}
	f.PushedTxs = append(f.PushedTxs, rawHex)
	return tx.TxHash().String(), nil
}

var _ BitcoinChain = (*FakeChain)(nil)
