// Package bitsharesclient defines the BitsharesChain adapter interface
// consumed by the swap orchestrator, plus a WebSocket-JSON-RPC implementation
// of it against a Bitshares full node's public database and
// network_broadcast APIs.
package bitsharesclient

import "context"

// HTLCCreateParams are the parameters needed to lock funds into a Bitshares
// HTLC from the signer to a named recipient.
type HTLCCreateParams struct {
	FromAccountID  string
	ToAccountID    string
	Amount         uint64 // smallest unit of Asset (BTS minicents for the core asset)
	Asset          string // Bitshares asset id, e.g. "1.3.0"
	Hash           [32]byte
	TimeSeconds    int
	PrivateKeyWIF  string
	PreimageLength uint16 // length hint the chain enforces on redemption, 32 for SHA-256
}

// BitsharesChain is the query/broadcast surface the swap orchestrator needs
// from a Bitshares full node. Any database/network_broadcast-API-compatible
// backend can implement it.
type BitsharesChain interface {
	// Create locks Amount of Asset from the signer identified by
	// params.PrivateKeyWIF to params.ToAccountID, redeemable with
	// SHA256(preimage) == params.Hash within params.TimeSeconds.
	Create(ctx context.Context, params HTLCCreateParams) error

	// Redeem attempts to redeem htlcID using preimage. Returns (false, nil)
	// rather than an error when no matching HTLC exists yet - the
	// orchestrator polls by calling Redeem repeatedly until it either
	// succeeds or its timelock horizon expires. A non-nil error means a
	// genuine transport or structural failure, not "not yet".
	Redeem(ctx context.Context, htlcID string, amount uint64, privateKeyWIF string, preimage []byte) (bool, error)

	// GetID locates an HTLC matching the exact parameter tuple, used by the
	// accepter to verify the proposer's HTLC is on chain before acting on
	// its own leg. ok=false means no match yet.
	GetID(ctx context.Context, from, to string, amount uint64, hash [32]byte, timeSeconds int) (id string, ok bool, err error)

	// GetPreimageFromHTLC returns the preimage once the counterparty has
	// redeemed the HTLC between from and to matching hashHex. ok=false
	// means it has not been redeemed yet.
	GetPreimageFromHTLC(ctx context.Context, from, to, hashHex string) (preimageHex string, ok bool, err error)

	// ToAccountID derives the Bitshares account id owning privateKeyWIF.
	ToAccountID(ctx context.Context, privateKeyWIF string) (accountID string, err error)

	// GetAccountID resolves a Bitshares account name to its object id.
	GetAccountID(ctx context.Context, name string) (accountID string, err error)

	// Close releases the underlying WebSocket connection. Safe to call more
	// than once.
	Close() error
}
