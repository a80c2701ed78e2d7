package ports

import (
	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

type SelectionEventHandler func(event domain.SelectionEvent)

// RepoManager is the abstraction for any kind of service intended to manage
// domain repositories implementations of the same concrete type.
type RepoManager interface {
	// SelectionRepository returns the selection repository.
	SelectionRepository() domain.SelectionRepository

	// RegisterHandlerForSelectionEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForSelectionEvent(
		eventType domain.SelectionEventType, handler SelectionEventHandler,
	)

	// Reset brings all the repos to their initial state by deleting any persisted data.
	Reset()

	// Close closes the connection with all concrete repositories
	// implementations.
	Close()
}
