package inmemory

import (
	"sync"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

type repoManager struct {
	selectionRepository *selectionRepository

	selectionEventHandlers *handlerMap
}

func NewRepoManager() ports.RepoManager {
	selectionRepo := newSelectionRepository()

	rm := &repoManager{
		selectionRepository:    selectionRepo,
		selectionEventHandlers: newHandlerMap(),
	}

	go rm.listenToSelectionEvents()

	return rm
}

func (rm *repoManager) SelectionRepository() domain.SelectionRepository {
	return rm.selectionRepository
}

func (rm *repoManager) RegisterHandlerForSelectionEvent(
	eventType domain.SelectionEventType, handler ports.SelectionEventHandler,
) {
	rm.selectionEventHandlers.set(int(eventType), handler)
}

func (rm *repoManager) Reset() {
	rm.selectionRepository.reset()
}

func (rm *repoManager) Close() {
	rm.selectionRepository.close()
}

func (rm *repoManager) listenToSelectionEvents() {
	for event := range rm.selectionRepository.chEvents {
		if handlers, ok := rm.selectionEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.SelectionEventHandler)(event)
			}
		}
	}
}

// handlerMap is a util type to prevent race conditions when registering
// or retrieving handlers for events.
type handlerMap struct {
	handlersByEventType map[int][]interface{}
	lock                *sync.RWMutex
}

func newHandlerMap() *handlerMap {
	return &handlerMap{
		handlersByEventType: make(map[int][]interface{}),
		lock:                &sync.RWMutex{},
	}
}

func (m *handlerMap) set(key int, val interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.handlersByEventType[key] = append(m.handlersByEventType[key], val)
}

func (m *handlerMap) get(key int) ([]interface{}, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, ok := m.handlersByEventType[key]
	return val, ok
}
