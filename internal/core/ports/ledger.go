package ports

import (
	"context"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

// LedgerService is the abstraction for any kind of remote service that knows
// about the spendable outputs of an address, like a block explorer or an
// Electrum server.
type LedgerService interface {
	// Start starts the service.
	Start() error
	// Stop stops the service.
	Stop()

	// GetUtxos returns the list of currently spendable utxos for the given
	// address. An empty list means the address has no outputs to spend, while
	// an error means the service failed to answer.
	GetUtxos(ctx context.Context, address string) ([]*domain.Utxo, error)
}
