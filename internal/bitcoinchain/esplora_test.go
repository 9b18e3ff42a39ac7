package bitcoinchain

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitswaplabs/accs-btc-bts/internal/swaperrors"
)

func TestEsploraChain_GetUTXOs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tx/abc123" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"txid": "abc123",
			"status": map[string]interface{}{
				"confirmed":    true,
				"block_height": 100,
			},
			"vout": []map[string]interface{}{
				{"scriptpubkey": "0014aa", "value": 50000},
				{"scriptpubkey": "0014bb", "value": 25000},
			},
		})
	}))
	defer srv.Close()

	chain := NewEsploraChain(srv.URL)
	outs, err := chain.GetUTXOs(t.Context(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outs))
	}
	if outs[0].Value != 50000 || outs[0].Vout != 0 {
		t.Errorf("unexpected output 0: %+v", outs[0])
	}
	if outs[1].Value != 25000 || outs[1].Vout != 1 {
		t.Errorf("unexpected output 1: %+v", outs[1])
	}
}

func TestEsploraChain_GetPreimageFromLastTransaction(t *testing.T) {
	preimageHex := "0102030405060708090a0b0c0d0e0f100102030405060708090a0b0c0d0e0f10"

	tests := []struct {
		name    string
		witness []string
		wantErr bool
		malformed bool
	}{
		{
			name:    "canonical claim witness",
			witness: []string{"30440201...", "02abcd...", preimageHex, "01", "63a820..."},
			wantErr: false,
		},
		{
			name:      "refund shape witness",
			witness:   []string{"30440201...", "02abcd...", "", "", "63a820..."},
			wantErr:   true,
			malformed: true,
		},
		{
			name:      "wrong length",
			witness:   []string{"a", "b"},
			wantErr:   true,
			malformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]map[string]interface{}{
					{
						"txid": "spend1",
						"vin": []map[string]interface{}{
							{"witness": tt.witness, "sequence": 0},
						},
						"vout": []map[string]interface{}{},
					},
				})
			}))
			defer srv.Close()

			chain := NewEsploraChain(srv.URL)
			preimage, err := chain.GetPreimageFromLastTransaction(t.Context(), "bc1qsomeaddr")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.malformed {
					var mw *swaperrors.MalformedWitnessError
					if !errors.As(err, &mw) {
						t.Fatalf("expected malformed witness error, got %T", err)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(preimage) != 32 {
				t.Fatalf("expected 32-byte preimage, got %d bytes", len(preimage))
			}
		})
	}
}

func TestEsploraChain_GetLastBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blocks/tip/height":
			w.Write([]byte("800000"))
		case "/blocks/tip/hash":
			w.Write([]byte("0000000000000000000abc"))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	chain := NewEsploraChain(srv.URL)
	tip, err := chain.GetLastBlock(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tip.Height != 800000 {
		t.Errorf("expected height 800000, got %d", tip.Height)
	}
	if tip.Hash != "0000000000000000000abc" {
		t.Errorf("unexpected hash: %s", tip.Hash)
	}
}
