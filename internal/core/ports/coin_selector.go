package ports

import "github.com/vulpemventures/utxoprep/internal/core/domain"

// CoinSelector is the abstraction for any kind of service intended to return a
// subset of the given utxos covering the target amount based on a specific
// strategy.
// The given utxos are expected to be already sorted by ascending value.
type CoinSelector interface {
	// SelectUtxos implements a certain coin selection strategy.
	SelectUtxos(
		utxos []*domain.Utxo, targetAmount uint64,
	) (
		selectedUtxos []*domain.Utxo, change uint64, strategy domain.Strategy,
		err error,
	)
}
