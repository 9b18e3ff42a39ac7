// Package bitcoinchain defines the BitcoinChain adapter interface consumed
// by the HTLC engine and the swap orchestrator, plus an Esplora/mempool.space
// compatible REST implementation of it. All methods are read-only except
// PushTX - no private keys are handled here.
package bitcoinchain

import "context"

// UTXOOutput describes one output of a transaction, as consumed by the
// funding-UTXO lookup in BitcoinHTLC.Create.
type UTXOOutput struct {
	Vout         uint32
	Value        int64
	ScriptPubKey string // hex encoded
	Confirmed    bool
	BlockHeight  int64
}

// FeeEstimates holds sat/vB fee rates at three priority tiers, 0 being the
// slowest/cheapest and 2 the fastest/most expensive.
type FeeEstimates struct {
	Priority0 float64
	Priority1 float64
	Priority2 float64
}

// Max returns the highest of the three tiers, used to bound what a
// counterparty's HTLC deduction is allowed to be.
func (f FeeEstimates) Max() float64 {
	m := f.Priority0
	if f.Priority1 > m {
		m = f.Priority1
	}
	if f.Priority2 > m {
		m = f.Priority2
	}
	return m
}

// At returns the rate for the given priority. Any value other than 0 or 2,
// including out-of-range ones, yields the middle tier (Priority1).
func (f FeeEstimates) At(priority int) float64 {
	switch priority {
	case 0:
		return f.Priority0
	case 2:
		return f.Priority2
	default:
		return f.Priority1
	}
}

// BlockTip describes the current chain tip.
type BlockTip struct {
	Height int64
	Hash   string
}

// BlockHeader carries the fields needed to estimate median block time.
type BlockHeader struct {
	Height    int64
	Timestamp int64 // unix seconds
}

// FundingTx is the most-recent transaction observed funding an address.
type FundingTx struct {
	TxID  string
	Value int64
}

// BitcoinChain is the query/broadcast surface the HTLC engine and the
// orchestrator need from a Bitcoin full node or block explorer. Any
// REST-based Esplora-compatible backend can implement it.
type BitcoinChain interface {
	// GetUTXOs returns every output of txid, so the caller can pick the
	// ones paying the sender's address as spendable funding inputs.
	GetUTXOs(ctx context.Context, txid string) ([]UTXOOutput, error)

	// GetFeeEstimates returns sat/vB fee rates at three priority tiers.
	// Called twice by the HTLC engine's fee calculation: once for the
	// "desired" read, once for the "upper-bound" read.
	GetFeeEstimates(ctx context.Context) (FeeEstimates, error)

	// GetLastBlock returns the current chain tip.
	GetLastBlock(ctx context.Context) (BlockTip, error)

	// GetBlockHeaderAtHeight returns the header timestamp for height, used
	// by the Timer to estimate median block time.
	GetBlockHeaderAtHeight(ctx context.Context, height int64) (BlockHeader, error)

	// GetBlockHeightForTx returns the confirmation height of txid, and
	// ok=false if the transaction is unconfirmed or unknown.
	GetBlockHeightForTx(ctx context.Context, txid string) (height int64, ok bool, err error)

	// GetValueFromLastTransaction returns the most recent transaction
	// funding address. Fails with *swaperrors.NotFoundError if none exists.
	GetValueFromLastTransaction(ctx context.Context, address string) (FundingTx, error)

	// GetPreimageFromLastTransaction parses the witness of the most recent
	// transaction spending address and returns the 32-byte preimage.
	// Fails with *swaperrors.NotFoundError if no spend exists yet, and
	// *swaperrors.MalformedWitnessError if the spend's witness does not
	// match the expected HTLC redeem shape.
	GetPreimageFromLastTransaction(ctx context.Context, address string) ([]byte, error)

	// PushTX broadcasts rawHex and returns the resulting txid.
	PushTX(ctx context.Context, rawHex string) (string, error)
}
