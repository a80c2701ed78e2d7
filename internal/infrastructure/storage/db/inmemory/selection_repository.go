package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

type selectionInmemoryStore struct {
	selections          map[string]*domain.Selection
	selectionsByAddress map[string][]string
	lock                *sync.RWMutex
}

type selectionRepository struct {
	store            *selectionInmemoryStore
	chEvents         chan domain.SelectionEvent
	externalChEvents chan domain.SelectionEvent
	chLock           *sync.Mutex
	closed           bool
}

func NewSelectionRepository() domain.SelectionRepository {
	return newSelectionRepository()
}

func newSelectionRepository() *selectionRepository {
	return &selectionRepository{
		store: &selectionInmemoryStore{
			selections:          make(map[string]*domain.Selection),
			selectionsByAddress: make(map[string][]string),
			lock:                &sync.RWMutex{},
		},
		chEvents:         make(chan domain.SelectionEvent),
		externalChEvents: make(chan domain.SelectionEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *selectionRepository) AddSelection(
	_ context.Context, selection *domain.Selection,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.selections[selection.ID]; ok {
		return false, nil
	}

	s := copySelection(selection)
	r.store.selections[s.ID] = s
	r.store.selectionsByAddress[s.Address] = append(
		r.store.selectionsByAddress[s.Address], s.ID,
	)

	go r.publishEvent(domain.SelectionEvent{
		EventType: domain.SelectionAdded,
		Selection: *copySelection(s),
	})

	return true, nil
}

func (r *selectionRepository) GetSelection(
	_ context.Context, id string,
) (*domain.Selection, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	s, ok := r.store.selections[id]
	if !ok {
		return nil, domain.ErrSelectionNotFound
	}
	return copySelection(s), nil
}

func (r *selectionRepository) GetSelectionsForAddress(
	_ context.Context, address string,
) ([]*domain.Selection, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	ids := r.store.selectionsByAddress[address]
	selections := make([]*domain.Selection, 0, len(ids))
	for _, id := range ids {
		selections = append(selections, copySelection(r.store.selections[id]))
	}
	return selections, nil
}

func (r *selectionRepository) GetAllSelections(
	_ context.Context,
) ([]*domain.Selection, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	selections := make([]*domain.Selection, 0, len(r.store.selections))
	for _, s := range r.store.selections {
		selections = append(selections, copySelection(s))
	}
	sort.SliceStable(selections, func(i, j int) bool {
		if selections[i].CreatedAt == selections[j].CreatedAt {
			return selections[i].ID < selections[j].ID
		}
		return selections[i].CreatedAt < selections[j].CreatedAt
	})
	return selections, nil
}

func (r *selectionRepository) GetEventChannel() chan domain.SelectionEvent {
	return r.externalChEvents
}

func (r *selectionRepository) publishEvent(event domain.SelectionEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	if r.closed {
		return
	}
	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *selectionRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.selections = make(map[string]*domain.Selection)
	r.store.selectionsByAddress = make(map[string][]string)
}

func (r *selectionRepository) close() {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.chEvents)
	close(r.externalChEvents)
}

func copySelection(s *domain.Selection) *domain.Selection {
	c := *s
	c.Utxos = append([]domain.UtxoKey{}, s.Utxos...)
	return &c
}
