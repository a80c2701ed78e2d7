package esplora_ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/ledger"
)

const DefaultURL = "https://blockstream.info/api"

type ServiceArgs struct {
	Url     string
	Timeout time.Duration
	Network *chaincfg.Params
}

func (a ServiceArgs) validate() error {
	if a.Url == "" {
		return fmt.Errorf("missing api url")
	}
	if _, err := url.ParseRequestURI(a.Url); err != nil {
		return fmt.Errorf("invalid api url: %s", err)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

type utxoStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint64 `json:"block_height"`
}

type utxoResponse struct {
	Txid   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Value  uint64     `json:"value"`
	Status utxoStatus `json:"status"`
}

type service struct {
	baseUrl    string
	network    *chaincfg.Params
	httpClient *http.Client

	log func(format string, a ...interface{})
}

// NewService returns a ledger service backed by an Esplora REST API.
// If a network is given, addresses are validated against it and the returned
// utxos are enriched with their output script.
func NewService(args ServiceArgs) (ports.LedgerService, error) {
	if err := args.validate(); err != nil {
		return nil, fmt.Errorf("invalid args: %s", err)
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("ledger: %s", format)
		log.Debugf(format, a...)
	}
	return &service{
		baseUrl:    strings.TrimSuffix(args.Url, "/"),
		network:    args.Network,
		httpClient: &http.Client{Timeout: args.Timeout},
		log:        logFn,
	}, nil
}

func (s *service) Start() error {
	return nil
}

func (s *service) Stop() {
	s.httpClient.CloseIdleConnections()
}

func (s *service) GetUtxos(
	ctx context.Context, address string,
) ([]*domain.Utxo, error) {
	var script []byte
	if s.network != nil {
		var err error
		if script, err = ledger.AddressScript(address, s.network); err != nil {
			return nil, err
		}
	}

	endpoint := fmt.Sprintf("%s/address/%s/utxo", s.baseUrl, url.PathEscape(address))
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unspent outputs: %w", err)
	}

	var res []utxoResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(res) <= 0 {
		s.log("no unspent outputs for address %s", address)
		return nil, nil
	}

	tipHeight, err := s.getTipHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain tip: %w", err)
	}

	utxos := make([]*domain.Utxo, 0, len(res))
	for _, r := range res {
		if r.Value == 0 {
			continue
		}
		key, err := domain.ParseUtxoKey(r.Txid, r.Vout)
		if err != nil {
			return nil, fmt.Errorf("invalid unspent output in response: %w", err)
		}
		var height uint64
		if r.Status.Confirmed {
			height = r.Status.BlockHeight
		}
		utxos = append(utxos, &domain.Utxo{
			UtxoKey:       key,
			Value:         r.Value,
			Script:        script,
			BlockHeight:   height,
			Confirmations: ledger.Confirmations(height, tipHeight),
		})
	}

	s.log("fetched %d unspent output(s) for address %s", len(utxos), address)
	return utxos, nil
}

func (s *service) getTipHeight(ctx context.Context) (uint64, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/blocks/tip/height", s.baseUrl))
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
}

func (s *service) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}
	return body, nil
}
