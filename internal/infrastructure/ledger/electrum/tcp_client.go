package electrum_ledger

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

type tcpClient struct {
	*rpcClient
	conn      net.Conn
	writeLock *sync.Mutex
}

func newTCPClient(addr string) (electrumClient, error) {
	split := strings.SplitN(addr, "://", 2)
	if len(split) != 2 {
		return nil, fmt.Errorf("invalid address %s", addr)
	}
	proto, host := split[0], split[1]

	var conn net.Conn
	var err error
	switch proto {
	case "tcp":
		conn, err = net.Dial(proto, host)
	case "ssl":
		conn, err = tls.Dial("tcp", host, nil)
	default:
		err = fmt.Errorf("unknown protocol %s", proto)
	}
	if err != nil {
		return nil, err
	}

	c := &tcpClient{conn: conn, writeLock: &sync.Mutex{}}
	c.rpcClient = newRpcClient(c.writeRequest)

	go c.keepAliveConnection()

	return c, nil
}

func (c *tcpClient) listen() {
	defer c.shutdown()

	reader := bufio.NewReader(c.conn)
	for {
		msg, err := reader.ReadBytes(delim)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if errors.Is(err, io.EOF) {
				c.log("connection closed by server")
				return
			}
			c.warn(err, "failed to read message from socket")
			return
		}
		c.handleMessage(msg)
	}
}

func (c *tcpClient) close() {
	c.conn.Close()
	c.shutdown()
}

func (c *tcpClient) writeRequest(req request) error {
	buf, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	_, err = c.conn.Write(append(buf, delim))
	return err
}
