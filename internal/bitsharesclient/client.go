package bitsharesclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/ripemd160"

	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
	"github.com/bitswaplabs/accs-btc-bts/pkg/logging"
)

// dialTimeout bounds the initial WebSocket handshake.
const dialTimeout = 10 * time.Second

// connections holds one lazily-dialed WebSocket client per endpoint URL, so
// that every HTLC engine instance pointed at the same node shares a single
// socket instead of opening one per swap leg.
var (
	connMu      sync.Mutex
	connections = make(map[string]*Client)
)

// Get returns the shared Client for endpoint, dialing it on first use.
func Get(ctx context.Context, endpoint string) (*Client, error) {
	connMu.Lock()
	defer connMu.Unlock()

	if c, ok := connections[endpoint]; ok {
		return c, nil
	}

	c, err := dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	connections[endpoint] = c
	return c, nil
}

// rpcRequest is a JSON-RPC 2.0 request envelope. Bitshares full nodes expose
// every API behind a single "call" method whose params are
// [api_id, method, args].
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a JSON-RPC 2.0 client over a single WebSocket connection to a
// Bitshares full node's public database and network_broadcast APIs.
type Client struct {
	endpoint string
	conn     *websocket.Conn
	log      *logging.Logger

	requestID atomic.Uint64

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse

	databaseAPIID         int
	networkBroadcastAPIID int

	closeOnce sync.Once
	closeErr  error
}

func dial(ctx context.Context, endpoint string) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, swaperrors.NewChainQueryError("bitshares.dial", err)
	}

	c := &Client{
		endpoint: endpoint,
		conn:     conn,
		log:      logging.Default().Component("bitshares-client"),
		pending:  make(map[uint64]chan rpcResponse),
	}
	go c.readPump()

	apiID, err := c.callRaw(ctx, 1, "database", nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve database api id: %w", err)
	}
	if err := json.Unmarshal(apiID, &c.databaseAPIID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("parse database api id: %w", err)
	}

	broadcastID, err := c.callRaw(ctx, 1, "network_broadcast", nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve network_broadcast api id: %w", err)
	}
	if err := json.Unmarshal(broadcastID, &c.networkBroadcastAPIID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("parse network_broadcast api id: %w", err)
	}

	return c, nil
}

// readPump is the connection's single reader goroutine - required because
// gorilla/websocket does not support concurrent reads on one connection. It
// demultiplexes responses to their waiting caller by request id.
func (c *Client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.pendingMu.Lock()
			for id, ch := range c.pending {
				close(ch)
				delete(c.pending, id)
			}
			c.pendingMu.Unlock()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.Warn("discarding unparseable bitshares response", "err", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
			close(ch)
		}
	}
}

func (c *Client) callRaw(ctx context.Context, apiID int, method string, args []interface{}) (json.RawMessage, error) {
	if args == nil {
		args = []interface{}{}
	}
	id := c.requestID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "call",
		Params:  []interface{}{apiID, method, args},
	}

	ch := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, swaperrors.NewChainQueryError("bitshares."+method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, swaperrors.NewChainQueryError("bitshares."+method, fmt.Errorf("connection closed before response"))
		}
		if resp.Error != nil {
			return nil, swaperrors.NewChainQueryError("bitshares."+method, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message))
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, swaperrors.NewChainQueryError("bitshares."+method, ctx.Err())
	}
}

func (c *Client) callDatabase(ctx context.Context, method string, args ...interface{}) (json.RawMessage, error) {
	return c.callRaw(ctx, c.databaseAPIID, method, args)
}

func (c *Client) callBroadcast(ctx context.Context, method string, args ...interface{}) (json.RawMessage, error) {
	return c.callRaw(ctx, c.networkBroadcastAPIID, method, args)
}

// Close releases the underlying WebSocket connection and drops it from the
// shared endpoint registry. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		connMu.Lock()
		if connections[c.endpoint] == c {
			delete(connections, c.endpoint)
		}
		connMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// htlcObject mirrors the fields of a Bitshares htlc_object relevant to
// matching and redemption, as returned by get_objects/get_htlc.
type htlcObject struct {
	ID              string `json:"id"`
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          uint64 `json:"amount"`
	AssetID         string `json:"asset_id"`
	HashHex         string `json:"preimage_hash"`
	TimeLockSeconds int    `json:"time_lock_seconds"`
	PreimageHex     string `json:"preimage,omitempty"`
}

// Create broadcasts an htlc_create operation locking params.Amount of
// params.Asset from the signer to params.ToAccountID.
func (c *Client) Create(ctx context.Context, params HTLCCreateParams) error {
	hashHex := hex.EncodeToString(params.Hash[:])
	op := map[string]interface{}{
		"from":             params.FromAccountID,
		"to":               params.ToAccountID,
		"amount":           map[string]interface{}{"amount": params.Amount, "asset_id": params.Asset},
		"preimage_hash":    map[string]interface{}{"preimage_hash_algorithm": "SHA256", "preimage_hash": hashHex},
		"preimage_size":    params.PreimageLength,
		"claim_period_sec": params.TimeSeconds,
	}
	_, err := c.callDatabase(ctx, "broadcast_htlc_create", op, params.PrivateKeyWIF)
	if err != nil {
		return err
	}
	return nil
}

// Redeem attempts to reveal preimage against htlcID. Returns (false, nil)
// when the htlc_redeem operation is rejected for a not-yet-existing or
// already-resolved HTLC, which looks identical to "not yet" from the
// orchestrator's point of view.
func (c *Client) Redeem(ctx context.Context, htlcID string, amount uint64, privateKeyWIF string, preimage []byte) (bool, error) {
	if htlcID == "" {
		return false, nil
	}
	result, err := c.callBroadcast(ctx, "broadcast_htlc_redeem", htlcID, hex.EncodeToString(preimage), privateKeyWIF)
	if err != nil {
		if swaperrors.IsTransport(err) {
			return false, nil
		}
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil {
		// A non-boolean result still indicates the broadcast was accepted.
		return true, nil
	}
	return ok, nil
}

// GetID locates an HTLC matching the exact (from, to, amount, hash,
// timeSeconds) tuple via get_htlc.
func (c *Client) GetID(ctx context.Context, from, to string, amount uint64, hash [32]byte, timeSeconds int) (string, bool, error) {
	hashHex := hex.EncodeToString(hash[:])
	result, err := c.callDatabase(ctx, "get_htlc", from, to, amount, hashHex, timeSeconds)
	if err != nil {
		if swaperrors.IsTransport(err) {
			return "", false, nil
		}
		return "", false, err
	}

	var obj *htlcObject
	if err := json.Unmarshal(result, &obj); err != nil {
		return "", false, swaperrors.NewMalformedWitnessError("unparseable htlc object: " + err.Error())
	}
	if obj == nil {
		return "", false, nil
	}
	return obj.ID, true, nil
}

// GetPreimageFromHTLC returns the preimage of the HTLC between from and to
// matching hashHex, once the counterparty has redeemed it.
func (c *Client) GetPreimageFromHTLC(ctx context.Context, from, to, hashHex string) (string, bool, error) {
	result, err := c.callDatabase(ctx, "get_htlc", from, to, hashHex)
	if err != nil {
		if swaperrors.IsTransport(err) {
			return "", false, nil
		}
		return "", false, err
	}

	var obj *htlcObject
	if err := json.Unmarshal(result, &obj); err != nil {
		return "", false, swaperrors.NewMalformedWitnessError("unparseable htlc object: " + err.Error())
	}
	if obj == nil || obj.PreimageHex == "" {
		return "", false, nil
	}

	preimage, err := hex.DecodeString(obj.PreimageHex)
	if err != nil || len(preimage) != 32 {
		return "", false, swaperrors.NewMalformedWitnessError("preimage not 32 bytes")
	}
	actual := sha256.Sum256(preimage)
	if hex.EncodeToString(actual[:]) != hashHex {
		return "", false, swaperrors.NewMalformedWitnessError("preimage does not hash to expected value")
	}
	return obj.PreimageHex, true, nil
}

// bitsharesPublicKey encodes pub in the wire format Bitshares account and
// key-reference RPCs expect: the "BTS" network prefix followed by the
// base58 encoding of the compressed public key plus a 4-byte RIPEMD-160
// checksum (graphene chains checksum the raw pubkey bytes directly, unlike
// Bitcoin's double-SHA256 address checksum).
func bitsharesPublicKey(pub *btcec.PublicKey) string {
	data := pub.SerializeCompressed()
	h := ripemd160.New()
	h.Write(data)
	checksum := h.Sum(nil)[:4]
	payload := append(append([]byte{}, data...), checksum...)
	return "BTS" + base58.Encode(payload)
}

// ToAccountID asks the node to resolve the account owning privateKeyWIF, by
// deriving its public key and looking up the owning account via
// get_key_references. Bitshares key->account resolution is a chain-side
// concern; this client treats it as opaque beyond the single RPC call.
func (c *Client) ToAccountID(ctx context.Context, privateKeyWIF string) (string, error) {
	wif, err := btcutil.DecodeWIF(privateKeyWIF)
	if err != nil {
		return "", fmt.Errorf("decode bitshares private key: %w", err)
	}
	pubKey := bitsharesPublicKey(wif.PrivKey.PubKey())

	result, err := c.callDatabase(ctx, "get_key_references", []string{pubKey})
	if err != nil {
		return "", err
	}
	var accounts [][]string
	if err := json.Unmarshal(result, &accounts); err != nil {
		return "", fmt.Errorf("parse key references: %w", err)
	}
	if len(accounts) == 0 || len(accounts[0]) == 0 {
		return "", swaperrors.NewNotFoundError("account for private key")
	}
	return accounts[0][0], nil
}

// GetAccountID resolves a Bitshares account name to its object id via
// get_account_by_name.
func (c *Client) GetAccountID(ctx context.Context, name string) (string, error) {
	result, err := c.callDatabase(ctx, "get_account_by_name", name)
	if err != nil {
		return "", err
	}
	var account *struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(result, &account); err != nil {
		return "", fmt.Errorf("parse account: %w", err)
	}
	if account == nil {
		return "", swaperrors.NewNotFoundError("account " + name)
	}
	return account.ID, nil
}

var _ BitsharesChain = (*Client)(nil)
