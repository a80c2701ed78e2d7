package electrum_ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/ledger"
)

type ServiceArgs struct {
	Addr    string
	Network *chaincfg.Params
}

func (a ServiceArgs) validate() error {
	if a.Addr == "" {
		return fmt.Errorf("missing electrum server address")
	}
	if !a.withTCP() && !a.withWS() {
		return fmt.Errorf("invalid address: unknown protocol")
	}
	if a.Network == nil {
		return fmt.Errorf("missing network")
	}
	return nil
}

func (a ServiceArgs) withWS() bool {
	return strings.HasPrefix(a.Addr, "ws://") || strings.HasPrefix(a.Addr, "wss://")
}

func (a ServiceArgs) withTCP() bool {
	return strings.HasPrefix(a.Addr, "tcp://") || strings.HasPrefix(a.Addr, "ssl://")
}

func (a ServiceArgs) client() (electrumClient, error) {
	if a.withWS() {
		return newWSClient(a.Addr)
	}
	return newTCPClient(a.Addr)
}

type service struct {
	args    ServiceArgs
	client  electrumClient
	network *chaincfg.Params

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

// NewService returns a ledger service that looks up the unspent outputs of an
// address with an Electrum server, either over websocket (ws://, wss://) or
// raw socket (tcp://, ssl://).
// The connection is opened at Start.
func NewService(args ServiceArgs) (ports.LedgerService, error) {
	if err := args.validate(); err != nil {
		return nil, fmt.Errorf("invalid args: %s", err)
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("ledger: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("ledger: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	return &service{
		args:    args,
		network: args.Network,
		log:     logFn,
		warn:    warnFn,
	}, nil
}

func (s *service) Start() error {
	client, err := s.args.client()
	if err != nil {
		return fmt.Errorf("failed to connect to electrum server: %w", err)
	}
	s.client = client

	s.log("start listening to messages from electrum server")
	go s.client.listen()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.client.subscribeForBlocks(ctx); err != nil {
		s.client.close()
		return fmt.Errorf("failed to subscribe for new blocks: %w", err)
	}
	return nil
}

func (s *service) Stop() {
	if s.client == nil {
		return
	}
	s.client.close()
	s.log("closed connection with electrum server")
}

func (s *service) GetUtxos(
	ctx context.Context, address string,
) ([]*domain.Utxo, error) {
	if s.client == nil {
		return nil, ErrConnectionClosed
	}

	script, err := ledger.AddressScript(address, s.network)
	if err != nil {
		return nil, err
	}

	unspents, err := s.client.listUnspent(ctx, ledger.ScriptHash(script))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unspent outputs: %w", err)
	}

	tipHeight := s.client.getChainTip()
	utxos := make([]*domain.Utxo, 0, len(unspents))
	for _, u := range unspents {
		if u.Value == 0 {
			continue
		}
		key, err := domain.ParseUtxoKey(u.TxHash, u.TxPos)
		if err != nil {
			return nil, fmt.Errorf("invalid unspent output in response: %w", err)
		}
		// Mempool outputs are reported with height 0 or -1.
		var height uint64
		if u.Height > 0 {
			height = uint64(u.Height)
		}
		utxos = append(utxos, &domain.Utxo{
			UtxoKey:       key,
			Value:         u.Value,
			Script:        script,
			BlockHeight:   height,
			Confirmations: ledger.Confirmations(height, tipHeight),
		})
	}

	s.log("fetched %d unspent output(s) for address %s", len(utxos), address)
	return utxos, nil
}
