package dbbadger

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

const gcInterval = 30 * time.Minute

// repoManager holds all the badgerhold stores and domain repositories
// implementations in a single data structure.
type repoManager struct {
	selectionRepository *selectionRepository

	selectionEventHandlers *handlerMap
	chQuit                 chan struct{}
}

// NewRepoManager is the factory for creating a new badger implementation
// of the ports.RepoManager interface.
// It takes care of creating the db files on disk (or in-memory if no baseDbDir
// is provided - to be used only for testing purposes), and opening and closing
// the connection to them.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var selectionDir string
	if len(baseDbDir) > 0 {
		selectionDir = filepath.Join(baseDbDir, "selections")
	}

	chQuit := make(chan struct{})
	selectionDb, err := createDb(selectionDir, logger, chQuit)
	if err != nil {
		return nil, fmt.Errorf("opening selection db: %w", err)
	}

	rm := &repoManager{
		selectionRepository:    newSelectionRepository(selectionDb),
		selectionEventHandlers: newHandlerMap(),
		chQuit:                 chQuit,
	}

	go rm.listenToSelectionEvents()

	return rm, nil
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
	close(rm.chQuit)
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

func createDb(
	dbDir string, logger badger.Logger, chQuit chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(gcInterval)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
						log.Warnf("garbage collector: %s", err)
					}
				case <-chQuit:
					return
				}
			}
		}()
	}

	return db, nil
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
