package ports

import (
	"time"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

// MetricsCollector records the outcome of the prepare requests and stats
// about the selections.
type MetricsCollector interface {
	// ObserveRequest counts a prepare request by outcome (ok, missing_params,
	// invalid_amount, ledger_error, no_utxos, insufficient_funds, error).
	ObserveRequest(outcome string)
	// ObserveSelection records a successful selection made with the given
	// strategy, the number of selected utxos and the time it took.
	ObserveSelection(strategy domain.Strategy, numOfUtxos int, elapsed time.Duration)
}
