package bitcoinchain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
	"github.com/bitswaplabs/accs-btc-bts/pkg/logging"
)

// EsploraChain implements BitcoinChain against any Esplora/mempool.space
// compatible REST API (blockstream.info, mempool.space, and self-hosted
// instances all share this surface).
type EsploraChain struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// NewEsploraChain creates a client against baseURL, e.g.
// "https://blockstream.info/api".
func NewEsploraChain(baseURL string) *EsploraChain {
	return &EsploraChain{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.GetDefault().Component("bitcoinchain"),
	}
}

type esploraTxOut struct {
	ScriptPubKey string `json:"scriptpubkey"`
	Value        int64  `json:"value"`
}

type esploraVin struct {
	Witness []string `json:"witness"`
	Sequence uint32  `json:"sequence"`
}

type esploraTx struct {
	TxID   string `json:"txid"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
	Vin  []esploraVin   `json:"vin"`
	Vout []esploraTxOut `json:"vout"`
}

func (e *EsploraChain) GetUTXOs(ctx context.Context, txid string) ([]UTXOOutput, error) {
	var tx esploraTx
	if err := e.get(ctx, "/tx/"+txid, &tx); err != nil {
		return nil, err
	}

	outs := make([]UTXOOutput, len(tx.Vout))
	for i, v := range tx.Vout {
		outs[i] = UTXOOutput{
			Vout:         uint32(i),
			Value:        v.Value,
			ScriptPubKey: v.ScriptPubKey,
			Confirmed:    tx.Status.Confirmed,
			BlockHeight:  tx.Status.BlockHeight,
		}
	}
	return outs, nil
}

func (e *EsploraChain) GetFeeEstimates(ctx context.Context) (FeeEstimates, error) {
	var result map[string]float64
	if err := e.get(ctx, "/fee-estimates", &result); err != nil {
		return FeeEstimates{}, err
	}

	// Esplora keys fee-estimates by confirmation-target string ("1","3","6",...).
	pick := func(targets ...string) float64 {
		for _, t := range targets {
			if v, ok := result[t]; ok {
				return v
			}
		}
		return 1.0
	}

	return FeeEstimates{
		Priority0: pick("144", "24", "6"),
		Priority1: pick("6", "3"),
		Priority2: pick("1", "2"),
	}, nil
}

func (e *EsploraChain) GetLastBlock(ctx context.Context) (BlockTip, error) {
	var height int64
	if err := e.getRaw(ctx, "/blocks/tip/height", func(body []byte) error {
		return json.Unmarshal(body, &height)
	}); err != nil {
		return BlockTip{}, err
	}

	var hash string
	if err := e.getRaw(ctx, "/blocks/tip/hash", func(body []byte) error {
		hash = strings.TrimSpace(string(body))
		return nil
	}); err != nil {
		return BlockTip{}, err
	}

	return BlockTip{Height: height, Hash: hash}, nil
}

// GetBlockHeaderAtHeight fetches the block hash at height via the
// height-indexed lookup, then the header itself for its timestamp.
func (e *EsploraChain) GetBlockHeaderAtHeight(ctx context.Context, height int64) (BlockHeader, error) {
	var hash string
	if err := e.getRaw(ctx, fmt.Sprintf("/block-height/%d", height), func(body []byte) error {
		hash = strings.TrimSpace(string(body))
		return nil
	}); err != nil {
		return BlockHeader{}, err
	}

	var header struct {
		Height    int64 `json:"height"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := e.get(ctx, "/block/"+hash, &header); err != nil {
		return BlockHeader{}, err
	}

	return BlockHeader{Height: header.Height, Timestamp: header.Timestamp}, nil
}

func (e *EsploraChain) GetBlockHeightForTx(ctx context.Context, txid string) (int64, bool, error) {
	var tx esploraTx
	if err := e.get(ctx, "/tx/"+txid, &tx); err != nil {
		if _, ok := err.(*swaperrors.NotFoundError); ok {
			return 0, false, nil
		}
		return 0, false, err
	}
	if !tx.Status.Confirmed {
		return 0, false, nil
	}
	return tx.Status.BlockHeight, true, nil
}

func (e *EsploraChain) GetValueFromLastTransaction(ctx context.Context, address string) (FundingTx, error) {
	var txs []struct {
		TxID string         `json:"txid"`
		Vout []esploraTxOut `json:"vout"`
	}
	if err := e.get(ctx, "/address/"+address+"/txs", &txs); err != nil {
		return FundingTx{}, err
	}
	if len(txs) == 0 {
		return FundingTx{}, swaperrors.NewNotFoundError("no transaction funding " + address)
	}

	latest := txs[0]
	for _, out := range latest.Vout {
		if out.Value > 0 {
			return FundingTx{TxID: latest.TxID, Value: out.Value}, nil
		}
	}
	return FundingTx{}, swaperrors.NewNotFoundError("no funding output for " + address)
}

// GetPreimageFromLastTransaction inspects the most recent transaction
// spending address and extracts the preimage from the witness stack of the
// input that consumes the HTLC output. The claim witness has the shape
// [sig, pubkey, preimage, OP_1, script]; a refund witness is
// [sig, pubkey, <empty>, script] and yields MalformedWitnessError.
func (e *EsploraChain) GetPreimageFromLastTransaction(ctx context.Context, address string) ([]byte, error) {
	var txs []esploraTx
	if err := e.get(ctx, "/address/"+address+"/txs", &txs); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, swaperrors.NewNotFoundError("no spend of " + address + " yet")
	}

	latest := txs[0]
	if len(latest.Vin) == 0 {
		return nil, swaperrors.NewNotFoundError("no spend of " + address + " yet")
	}

	witness := latest.Vin[0].Witness
	// [sig, pubkey, preimage, OP_1, script]
	if len(witness) != 5 {
		return nil, swaperrors.NewMalformedWitnessError(fmt.Sprintf("expected 5 witness items, got %d", len(witness)))
	}

	selector, err := hex.DecodeString(witness[3])
	if err != nil || len(selector) != 1 || selector[0] != 0x01 {
		return nil, swaperrors.NewMalformedWitnessError("witness branch selector is not OP_1; this is a refund spend, not a claim")
	}

	preimage, err := hex.DecodeString(witness[2])
	if err != nil || len(preimage) != 32 {
		return nil, swaperrors.NewMalformedWitnessError("witness preimage is not 32 bytes")
	}

	return preimage, nil
}

func (e *EsploraChain) PushTX(ctx context.Context, rawHex string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/tx", strings.NewReader(rawHex))
	if err != nil {
		return "", swaperrors.NewChainQueryError("push_tx", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", swaperrors.NewBroadcastError(rawHex, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", swaperrors.NewBroadcastError(rawHex, fmt.Errorf("%s", string(body)))
	}

	txid := strings.TrimSpace(string(body))
	e.log.Info("broadcast transaction", "txid", txid)
	return txid, nil
}

func (e *EsploraChain) get(ctx context.Context, path string, out interface{}) error {
	return e.getRaw(ctx, path, func(body []byte) error {
		return json.Unmarshal(body, out)
	})
}

func (e *EsploraChain) getRaw(ctx context.Context, path string, decode func([]byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return swaperrors.NewChainQueryError(path, err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return swaperrors.NewChainQueryError(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return swaperrors.NewChainQueryError(path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return swaperrors.NewNotFoundError(path)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return swaperrors.NewChainQueryError(path, fmt.Errorf("rate limited"))
	}
	if resp.StatusCode != http.StatusOK {
		return swaperrors.NewChainQueryError(path, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	return decode(body)
}

var _ BitcoinChain = (*EsploraChain)(nil)
