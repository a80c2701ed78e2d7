package blockchaininfo_ledger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
	blockchaininfo_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/blockchaininfo"
)

const (
	address         = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	unspentResponse = `{
  "notice": "",
  "unspent_outputs": [
    {
      "tx_hash_big_endian": "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
      "tx_hash": "3ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a",
      "tx_output_n": 0,
      "script": "76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac",
      "value": 5000000000,
      "value_hex": "012a05f200",
      "confirmations": 850000,
      "tx_index": 0
    },
    {
      "tx_hash_big_endian": "",
      "tx_hash": "3ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a",
      "tx_output_n": 1,
      "script": "76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac",
      "value": 1000,
      "value_hex": "03e8",
      "confirmations": 0,
      "tx_index": 0
    }
  ]
}`
)

func TestGetUtxos(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/unspent", r.URL.Path)
				require.Equal(t, address, r.URL.Query().Get("active"))
				w.Write([]byte(unspentResponse))
			},
		))
		defer srv.Close()

		svc := newService(t, srv.URL)
		utxos, err := svc.GetUtxos(context.Background(), address)
		require.NoError(t, err)
		require.Len(t, utxos, 2)

		require.Equal(
			t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
			utxos[0].TxID,
		)
		require.Equal(t, uint64(5000000000), utxos[0].Value)
		require.True(t, utxos[0].IsConfirmed())
		require.Equal(t, utxos[0].TxID, utxos[1].TxID)
		require.Equal(t, uint32(1), utxos[1].VOut)
		require.False(t, utxos[1].IsConfirmed())
	})

	t.Run("no free outputs", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("No free outputs to spend"))
			},
		))
		defer srv.Close()

		svc := newService(t, srv.URL)
		utxos, err := svc.GetUtxos(context.Background(), address)
		require.NoError(t, err)
		require.Empty(t, utxos)
	})

	t.Run("service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("maintenance"))
			},
		))
		defer srv.Close()

		svc := newService(t, srv.URL)
		utxos, err := svc.GetUtxos(context.Background(), address)
		require.Error(t, err)
		require.Nil(t, utxos)
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{"))
			},
		))
		defer srv.Close()

		svc := newService(t, srv.URL)
		_, err := svc.GetUtxos(context.Background(), address)
		require.Error(t, err)
	})
}

func TestNewService(t *testing.T) {
	_, err := blockchaininfo_ledger.NewService(blockchaininfo_ledger.ServiceArgs{
		Timeout: time.Second,
	})
	require.Error(t, err)

	_, err = blockchaininfo_ledger.NewService(blockchaininfo_ledger.ServiceArgs{
		Url: blockchaininfo_ledger.DefaultURL,
	})
	require.Error(t, err)
}

func newService(t *testing.T, url string) ports.LedgerService {
	svc, err := blockchaininfo_ledger.NewService(blockchaininfo_ledger.ServiceArgs{
		Url:     url,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)
	return svc
}
