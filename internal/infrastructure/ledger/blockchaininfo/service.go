package blockchaininfo_ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

const (
	DefaultURL = "https://blockchain.info"

	// The API answers with this message, and status 500, for addresses without
	// spendable outputs.
	noFreeOutputsMsg = "No free outputs to spend"
	maxLimit         = 1000
)

type ServiceArgs struct {
	Url     string
	Timeout time.Duration
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

type unspentOutputsResponse struct {
	UnspentOutputs []domain.UtxoInfo `json:"unspent_outputs"`
}

type service struct {
	baseUrl    string
	httpClient *http.Client

	log func(format string, a ...interface{})
}

// NewService returns a ledger service backed by the blockchain.info unspent
// outputs API.
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
	query := url.Values{}
	query.Set("active", address)
	query.Set("limit", fmt.Sprintf("%d", maxLimit))
	endpoint := fmt.Sprintf("%s/unspent?%s", s.baseUrl, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unspent outputs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(body), noFreeOutputsMsg) {
			s.log("no unspent outputs for address %s", address)
			return nil, nil
		}
		return nil, fmt.Errorf(
			"failed to fetch unspent outputs: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	var res unspentOutputsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	utxos := make([]*domain.Utxo, 0, len(res.UnspentOutputs))
	for _, info := range res.UnspentOutputs {
		if info.Value == 0 {
			continue
		}
		utxo, err := domain.NewUtxoFromInfo(info)
		if err != nil {
			return nil, fmt.Errorf("invalid unspent output in response: %w", err)
		}
		utxos = append(utxos, utxo)
	}

	s.log("fetched %d unspent output(s) for address %s", len(utxos), address)
	return utxos, nil
}
