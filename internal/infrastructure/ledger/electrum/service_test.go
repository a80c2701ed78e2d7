package electrum_ledger_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	electrum_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/electrum"
)

const (
	address = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	// Electrum scripthash of the output script of the address above.
	scriptHash = "8b01df4e368ea28f8dc0423bcf7a4923e3a12d307c875e47a0cfbf90b5c39161"
	txid       = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	tipHeight  = 110
)

type rpcRequest struct {
	Id     uint64        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// handleRequest mocks the replies of an Electrum server.
func handleRequest(req rpcRequest) interface{} {
	switch req.Method {
	case "blockchain.headers.subscribe":
		return map[string]interface{}{
			"id":     req.Id,
			"result": map[string]interface{}{"hex": "", "height": tipHeight},
		}
	case "blockchain.scripthash.listunspent":
		if len(req.Params) != 1 || req.Params[0] != scriptHash {
			return map[string]interface{}{
				"id":    req.Id,
				"error": map[string]interface{}{"code": 1, "message": "unknown scripthash"},
			}
		}
		return map[string]interface{}{
			"id": req.Id,
			"result": []map[string]interface{}{
				{"tx_hash": txid, "tx_pos": 0, "height": 101, "value": 5000000000},
				{"tx_hash": txid, "tx_pos": 1, "height": 0, "value": 2000},
			},
		}
	default:
		return map[string]interface{}{"id": req.Id, "result": nil}
	}
}

func newWSServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			for {
				var req rpcRequest
				if err := conn.ReadJSON(&req); err != nil {
					return
				}
				if err := conn.WriteJSON(handleRequest(req)); err != nil {
					return
				}
			}
		},
	))
}

func newTCPServer(t *testing.T) net.Listener {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadBytes('\n')
					if err != nil {
						return
					}
					var req rpcRequest
					if err := json.Unmarshal(line, &req); err != nil {
						return
					}
					buf, _ := json.Marshal(handleRequest(req))
					if _, err := conn.Write(append(buf, '\n')); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return listener
}

func TestService(t *testing.T) {
	wsServer := newWSServer(t)
	defer wsServer.Close()
	tcpServer := newTCPServer(t)
	defer tcpServer.Close()

	tests := []struct {
		name string
		addr string
	}{
		{
			name: "websocket",
			addr: "ws" + strings.TrimPrefix(wsServer.URL, "http"),
		},
		{
			name: "tcp",
			addr: fmt.Sprintf("tcp://%s", tcpServer.Addr().String()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := electrum_ledger.NewService(electrum_ledger.ServiceArgs{
				Addr:    tt.addr,
				Network: &chaincfg.MainNetParams,
			})
			require.NoError(t, err)
			require.NoError(t, svc.Start())
			defer svc.Stop()

			utxos, err := svc.GetUtxos(context.Background(), address)
			require.NoError(t, err)
			require.Len(t, utxos, 2)

			require.Equal(t, txid, utxos[0].TxID)
			require.Equal(t, uint64(5000000000), utxos[0].Value)
			require.Equal(t, uint64(101), utxos[0].BlockHeight)
			require.Equal(t, int64(10), utxos[0].Confirmations)
			require.NotEmpty(t, utxos[0].Script)

			require.Equal(t, uint32(1), utxos[1].VOut)
			require.False(t, utxos[1].IsConfirmed())

			_, err = svc.GetUtxos(context.Background(), "not-an-address")
			require.Error(t, err)
		})
	}
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name string
		args electrum_ledger.ServiceArgs
	}{
		{
			name: "missing address",
			args: electrum_ledger.ServiceArgs{Network: &chaincfg.MainNetParams},
		},
		{
			name: "unknown protocol",
			args: electrum_ledger.ServiceArgs{
				Addr: "http://localhost:50001", Network: &chaincfg.MainNetParams,
			},
		},
		{
			name: "missing network",
			args: electrum_ledger.ServiceArgs{Addr: "tcp://localhost:50001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := electrum_ledger.NewService(tt.args)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}

func TestGetUtxosBeforeStart(t *testing.T) {
	svc, err := electrum_ledger.NewService(electrum_ledger.ServiceArgs{
		Addr: "tcp://localhost:50001", Network: &chaincfg.MainNetParams,
	})
	require.NoError(t, err)

	_, err = svc.GetUtxos(context.Background(), address)
	require.ErrorIs(t, err, electrum_ledger.ErrConnectionClosed)
}
