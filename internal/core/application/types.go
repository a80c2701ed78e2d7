package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
	ss_selector "github.com/vulpemventures/utxoprep/internal/infrastructure/coin-selector/smallest-subset"
	tiered_selector "github.com/vulpemventures/utxoprep/internal/infrastructure/coin-selector/tiered"
)

const (
	CoinSelectionStrategyTiered = iota
	CoinSelectionStrategySmallestSubset
)

const (
	OutcomeOk                = "ok"
	OutcomeMissingParams     = "missing_params"
	OutcomeInvalidAmount     = "invalid_amount"
	OutcomeLedgerError       = "ledger_error"
	OutcomeNoUtxos           = "no_utxos"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeError             = "error"
)

var (
	ErrMissingParams     = fmt.Errorf("address and amount required")
	ErrInvalidRequest    = fmt.Errorf("invalid amount")
	ErrLedgerUnavailable = fmt.Errorf("failed to fetch utxos")
	ErrNoUnspentOutputs  = fmt.Errorf("no unspent outputs found")
	ErrInsufficientFunds = fmt.Errorf("not enough funds")

	CoinSelectionStrategies = map[string]int{
		"tiered":          CoinSelectionStrategyTiered,
		"smallest-subset": CoinSelectionStrategySmallestSubset,
	}

	coinSelectorByType = map[int]CoinSelectorFactory{
		CoinSelectionStrategyTiered: func(maxExactTarget uint64) ports.CoinSelector {
			return tiered_selector.NewTieredCoinSelector(
				tiered_selector.WithMaxExactTarget(maxExactTarget),
			)
		},
		CoinSelectionStrategySmallestSubset: func(_ uint64) ports.CoinSelector {
			return ss_selector.NewSmallestSubsetCoinSelector()
		},
	}
)

// CoinSelectorFactory returns a new coin selector. The argument is the
// largest target amount for which an exact match is searched among all
// combinations of utxos, 0 means unbounded. Selectors that never search
// all combinations ignore it.
type CoinSelectorFactory func(maxExactTarget uint64) ports.CoinSelector

// NewCoinSelector returns the coin selector for the given strategy, or an
// error if not supported.
func NewCoinSelector(strategy int, maxExactTarget uint64) (ports.CoinSelector, error) {
	factory, ok := coinSelectorByType[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown coin selection strategy %d", strategy)
	}
	return factory(maxExactTarget), nil
}

type Utxos []*domain.Utxo

func (u Utxos) Keys() []domain.UtxoKey {
	keys := make([]domain.UtxoKey, 0, len(u))
	for _, utxo := range u {
		keys = append(keys, utxo.Key())
	}
	return keys
}

func (u Utxos) Info() []domain.UtxoInfo {
	info := make([]domain.UtxoInfo, 0, len(u))
	for _, utxo := range u {
		info = append(info, utxo.Info())
	}
	return info
}

func (u Utxos) Total() uint64 {
	var total uint64
	for _, utxo := range u {
		total += utxo.Value
	}
	return total
}

type UtxoKeys []domain.UtxoKey

func (u UtxoKeys) String() string {
	str := make([]string, 0, len(u))
	for _, key := range u {
		str = append(str, key.String())
	}
	return strings.Join(str, ", ")
}

// PreparedUtxos is the result of a successful prepare request.
type PreparedUtxos struct {
	SelectionID string
	Strategy    domain.Strategy
	Utxos       Utxos
	Change      uint64
}

type SelectionInfo domain.Selection

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string) {}
func (noopMetrics) ObserveSelection(domain.Strategy, int, time.Duration) {}

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}
