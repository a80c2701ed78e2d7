package electrum_ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	requestTimeout    = 15 * time.Second
	keepAliveInterval = time.Minute
)

var ErrConnectionClosed = fmt.Errorf("connection with electrum server closed")

type electrumClient interface {
	listen()
	close()

	subscribeForBlocks(ctx context.Context) error
	getChainTip() uint64
	listUnspent(ctx context.Context, scriptHash string) ([]unspentInfo, error)
}

// rpcClient implements the JSON-RPC layer of the Electrum protocol on top of
// a connection that knows how to write a single request.
type rpcClient struct {
	nextId    uint64
	chHandler *chHandler
	chainTip  blockInfo
	tipLock   *sync.RWMutex
	chQuit    chan struct{}
	closeOnce *sync.Once
	write     func(req request) error

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func newRpcClient(write func(req request) error) *rpcClient {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("ledger: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("ledger: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	return &rpcClient{
		chHandler: newChHandler(),
		tipLock:   &sync.RWMutex{},
		chQuit:    make(chan struct{}),
		closeOnce: &sync.Once{},
		write:     write,
		log:       logFn,
		warn:      warnFn,
	}
}

func (c *rpcClient) handleMessage(msg []byte) {
	var resp response
	if err := json.Unmarshal(msg, &resp); err != nil {
		c.warn(err, "failed to parse received message")
		return
	}

	if resp.Method == "blockchain.headers.subscribe" {
		var blocks []blockInfo
		if err := json.Unmarshal(resp.Params, &blocks); err != nil || len(blocks) <= 0 {
			c.warn(err, "failed to parse block notification")
			return
		}
		c.updateChainTip(blocks[0])
		return
	}
	if len(resp.Method) > 0 {
		return
	}

	if !c.chHandler.dispatch(resp) {
		c.log("dropped response for unknown request %d", resp.Id)
	}
}

func (c *rpcClient) keepAliveConnection() {
	t := time.NewTicker(keepAliveInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			if _, err := c.request(ctx, "server.ping"); err != nil {
				c.warn(err, "failed to keep connection alive")
			}
			cancel()
		case <-c.chQuit:
			return
		}
	}
}

func (c *rpcClient) shutdown() {
	c.closeOnce.Do(func() {
		close(c.chQuit)
		c.chHandler.clear()
	})
}

func (c *rpcClient) subscribeForBlocks(ctx context.Context) error {
	resp, err := c.request(ctx, "blockchain.headers.subscribe")
	if err != nil {
		return err
	}

	var block blockInfo
	if err := json.Unmarshal(resp.Result, &block); err != nil {
		return fmt.Errorf("failed to parse chain tip: %w", err)
	}
	c.updateChainTip(block)
	return nil
}

func (c *rpcClient) getChainTip() uint64 {
	c.tipLock.RLock()
	defer c.tipLock.RUnlock()

	return c.chainTip.Height
}

func (c *rpcClient) listUnspent(
	ctx context.Context, scriptHash string,
) ([]unspentInfo, error) {
	resp, err := c.request(ctx, "blockchain.scripthash.listunspent", scriptHash)
	if err != nil {
		return nil, err
	}

	utxos := make([]unspentInfo, 0)
	if err := json.Unmarshal(resp.Result, &utxos); err != nil {
		return nil, fmt.Errorf("failed to parse unspents: %w", err)
	}
	return utxos, nil
}

func (c *rpcClient) request(
	ctx context.Context, method string, params ...interface{},
) (*response, error) {
	select {
	case <-c.chQuit:
		return nil, ErrConnectionClosed
	default:
	}

	req := c.newRequest(method, params...)
	chResp := c.chHandler.addRequest(req)
	defer c.chHandler.clearRequest(req.Id)

	if err := c.write(req); err != nil {
		return nil, fmt.Errorf("failed to send request for method %s: %w", method, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	select {
	case resp, ok := <-chResp:
		if !ok {
			return nil, ErrConnectionClosed
		}
		if err := resp.error(); err != nil {
			return nil, err
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("request %s timed out: %w", method, ctx.Err())
	}
}

func (c *rpcClient) newRequest(method string, params ...interface{}) request {
	params = append([]interface{}{}, params...)
	return request{atomic.AddUint64(&c.nextId, 1), method, params}
}

func (c *rpcClient) updateChainTip(tip blockInfo) {
	c.tipLock.Lock()
	defer c.tipLock.Unlock()

	if tip.Height > c.chainTip.Height {
		c.log("new chain tip at height %d", tip.Height)
	}
	c.chainTip = tip
}
