package electrum_ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

type wsClient struct {
	*rpcClient
	conn      *websocket.Conn
	writeLock *sync.Mutex
}

func newWSClient(addr string) (electrumClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, err
	}

	c := &wsClient{conn: conn, writeLock: &sync.Mutex{}}
	c.rpcClient = newRpcClient(c.writeRequest)

	go c.keepAliveConnection()

	return c, nil
}

func (c *wsClient) listen() {
	defer c.shutdown()

	var incompleteMsg []byte
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if websocket.IsCloseError(
				err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
			) {
				c.log("connection closed by server")
				return
			}
			c.warn(err, "failed to read message from socket")
			return
		}

		// A single frame may carry many newline-delimited messages, and a message
		// may be split across frames.
		for _, m := range bytes.Split(msg, []byte{delim}) {
			if len(m) == 0 {
				continue
			}
			if len(incompleteMsg) > 0 {
				m = append(incompleteMsg, m...)
				incompleteMsg = nil
			}
			if !isCompleteJSON(m) {
				incompleteMsg = append([]byte{}, m...)
				continue
			}
			c.handleMessage(m)
		}
	}
}

func (c *wsClient) close() {
	c.writeLock.Lock()
	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeLock.Unlock()

	c.conn.Close()
	c.shutdown()
}

func (c *wsClient) writeRequest(req request) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	return c.conn.WriteJSON(req)
}

func isCompleteJSON(msg []byte) bool {
	return json.Valid(bytes.TrimSpace(msg))
}
