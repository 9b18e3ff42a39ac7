// Package swap implements the Bitcoin side of an atomic cross-chain swap: a
// P2WSH hash-time-locked contract redeem script, PSBT-based funding/redeem/
// refund transaction construction, and the BitcoinHTLC engine that drives
// them through their lifecycle.
package swap

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/bitswaplabs/accs-btc-bts/internal/chain"
	"github.com/bitswaplabs/accs-btc-bts/internal/wallet"
)

// MaxSequence is the largest CSV value representable under BIP-68's
// type-flag=0 (block-based) relative locktime encoding.
const MaxSequence = 65535

// RedeemScriptParams are the four values embedded in a redeem script.
type RedeemScriptParams struct {
	Hash        [32]byte // SHA256(preimage)
	Sequence    uint32   // CSV relative timelock, in blocks, 0..MaxSequence
	SenderPub   *btcec.PublicKey
	ReceiverPub *btcec.PublicKey
}

func (p RedeemScriptParams) validate() error {
	if p.Sequence > MaxSequence {
		return fmt.Errorf("sequence %d exceeds max CSV value %d", p.Sequence, MaxSequence)
	}
	if p.SenderPub == nil || p.ReceiverPub == nil {
		return fmt.Errorf("sender and receiver public keys are required")
	}
	return nil
}

// BuildRedeemScript constructs the HTLC witness script:
//
//	OP_IF
//	    OP_SHA256 <hash> OP_EQUALVERIFY
//	    OP_DUP OP_HASH160 <HASH160(receiverPubKey)>
//	OP_ELSE
//	    <sequence> OP_CHECKSEQUENCEVERIFY OP_DROP
//	    OP_DUP OP_HASH160 <HASH160(senderPubKey)>
//	OP_ENDIF
//	OP_EQUALVERIFY OP_CHECKSIG
//
// Both branches converge on a single pubkey-hash check and signature
// verification, so the receiver path requires the preimage plus a signature
// under the receiver key, and the sender path requires the CSV timelock plus
// a signature under the sender key.
func BuildRedeemScript(p RedeemScriptParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	receiverHash := wallet.PubKeyHash160(p.ReceiverPub)
	senderHash := wallet.PubKeyHash160(p.SenderPub)

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_SHA256)
	b.AddData(p.Hash[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(receiverHash)
	b.AddOp(txscript.OP_ELSE)
	b.AddInt64(int64(p.Sequence))
	b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	b.AddOp(txscript.OP_DROP)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(senderHash)
	b.AddOp(txscript.OP_ENDIF)
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)
	return b.Script()
}

// P2WSHPayment is the script plus its derived scriptPubKey and address.
type P2WSHPayment struct {
	RedeemScript []byte
	ScriptHash   [32]byte // SHA256(RedeemScript)
	ScriptPubKey []byte   // OP_0 <ScriptHash>
	Address      string
}

// BuildP2WSHPayment derives the P2WSH output that locks funds under script.
func BuildP2WSHPayment(script []byte, params *chain.Params) (*P2WSHPayment, error) {
	scriptHash := sha256.Sum256(script)

	addr, err := btcutil.NewAddressWitnessScriptHash(scriptHash[:], params.ChainCfg())
	if err != nil {
		return nil, fmt.Errorf("derive p2wsh address: %w", err)
	}

	scriptPubKey, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("build p2wsh scriptPubKey: %w", err)
	}

	return &P2WSHPayment{
		RedeemScript: script,
		ScriptHash:   scriptHash,
		ScriptPubKey: scriptPubKey,
		Address:      addr.EncodeAddress(),
	}, nil
}

// GetP2WSH builds the redeem script and its P2WSH payment directly from
// HTLC parameters. Pure and side-effect free; used by either party to
// recognize the counterparty's HTLC on chain without touching state.
func GetP2WSH(p RedeemScriptParams, params *chain.Params) (*P2WSHPayment, error) {
	script, err := BuildRedeemScript(p)
	if err != nil {
		return nil, err
	}
	return BuildP2WSHPayment(script, params)
}

// claimWitnessSelector/refundWitnessSelector pick the OP_IF/OP_ELSE branch.
// An empty push is the canonical encoding of boolean false on the stack; a
// single 0x01 byte is the canonical encoding of true.
var (
	claimWitnessSelector  = []byte{0x01}
	refundWitnessSelector = []byte{}
)

// BuildClaimWitness returns the witness stack that spends the OP_IF branch:
// [receiverSig, receiverPubKey, preimage, OP_1, redeemScript].
func BuildClaimWitness(receiverSig, receiverPubKey, preimage, redeemScript []byte) [][]byte {
	return [][]byte{receiverSig, receiverPubKey, preimage, claimWitnessSelector, redeemScript}
}

// BuildRefundWitness returns the witness stack that spends the OP_ELSE
// branch: [senderSig, senderPubKey, OP_0, redeemScript].
func BuildRefundWitness(senderSig, senderPubKey, redeemScript []byte) [][]byte {
	return [][]byte{senderSig, senderPubKey, refundWitnessSelector, redeemScript}
}

// ParsedRedeemScript is the result of tokenizing a redeem script back into
// its component parameters, used to recognize a counterparty's HTLC from
// raw script bytes observed on chain.
type ParsedRedeemScript struct {
	Hash             [32]byte
	ReceiverPubHash  []byte // HASH160(receiverPubKey), 20 bytes
	SenderPubHash    []byte // HASH160(senderPubKey), 20 bytes
	Sequence         uint32
}

// ParseRedeemScript tokenizes script and extracts its HTLC parameters. It
// validates exact opcode structure; any deviation is a MalformedWitnessError
// from the caller's point of view, but this function itself returns a plain
// error describing which step of the expected grammar failed.
func ParseRedeemScript(script []byte) (*ParsedRedeemScript, error) {
	tok := txscript.MakeScriptTokenizer(0, script)

	expectOp := func(op byte, name string) error {
		if !tok.Next() || tok.Opcode() != op {
			return fmt.Errorf("expected %s", name)
		}
		return nil
	}

	if err := expectOp(txscript.OP_IF, "OP_IF"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_SHA256, "OP_SHA256"); err != nil {
		return nil, err
	}
	if !tok.Next() {
		return nil, fmt.Errorf("expected hash push")
	}
	hashData := tok.Data()
	if len(hashData) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hashData))
	}
	var hash [32]byte
	copy(hash[:], hashData)

	if err := expectOp(txscript.OP_EQUALVERIFY, "OP_EQUALVERIFY"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_DUP, "OP_DUP"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_HASH160, "OP_HASH160"); err != nil {
		return nil, err
	}
	if !tok.Next() {
		return nil, fmt.Errorf("expected receiver pubkey hash push")
	}
	receiverHash := append([]byte(nil), tok.Data()...)
	if len(receiverHash) != 20 {
		return nil, fmt.Errorf("receiver pubkey hash must be 20 bytes, got %d", len(receiverHash))
	}

	if err := expectOp(txscript.OP_ELSE, "OP_ELSE"); err != nil {
		return nil, err
	}

	if !tok.Next() {
		return nil, fmt.Errorf("expected sequence push")
	}
	var sequence uint32
	if op := tok.Opcode(); txscript.IsSmallInt(op) {
		sequence = uint32(txscript.AsSmallInt(op))
	} else {
		data := tok.Data()
		if len(data) == 0 {
			return nil, fmt.Errorf("expected sequence data push")
		}
		for i, b := range data {
			sequence |= uint32(b) << (8 * i)
		}
	}

	if err := expectOp(txscript.OP_CHECKSEQUENCEVERIFY, "OP_CHECKSEQUENCEVERIFY"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_DROP, "OP_DROP"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_DUP, "OP_DUP"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_HASH160, "OP_HASH160"); err != nil {
		return nil, err
	}
	if !tok.Next() {
		return nil, fmt.Errorf("expected sender pubkey hash push")
	}
	senderHash := append([]byte(nil), tok.Data()...)
	if len(senderHash) != 20 {
		return nil, fmt.Errorf("sender pubkey hash must be 20 bytes, got %d", len(senderHash))
	}

	if err := expectOp(txscript.OP_ENDIF, "OP_ENDIF"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_EQUALVERIFY, "OP_EQUALVERIFY"); err != nil {
		return nil, err
	}
	if err := expectOp(txscript.OP_CHECKSIG, "OP_CHECKSIG"); err != nil {
		return nil, err
	}

	return &ParsedRedeemScript{
		Hash:            hash,
		ReceiverPubHash: receiverHash,
		SenderPubHash:   senderHash,
		Sequence:        sequence,
	}, nil
}
