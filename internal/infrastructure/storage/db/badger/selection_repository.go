package dbbadger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

type selectionDTO struct {
	ID           string
	Address      string `badgerholdIndex:"Address"`
	TargetAmount uint64
	Strategy     int
	Utxos        []domain.UtxoKey
	Total        uint64
	CreatedAt    int64
}

func (d selectionDTO) toDomain() *domain.Selection {
	return &domain.Selection{
		ID:           d.ID,
		Address:      d.Address,
		TargetAmount: d.TargetAmount,
		Strategy:     domain.Strategy(d.Strategy),
		Utxos:        append([]domain.UtxoKey{}, d.Utxos...),
		Total:        d.Total,
		CreatedAt:    d.CreatedAt,
	}
}

func toSelectionDTO(s *domain.Selection) selectionDTO {
	return selectionDTO{
		ID:           s.ID,
		Address:      s.Address,
		TargetAmount: s.TargetAmount,
		Strategy:     int(s.Strategy),
		Utxos:        append([]domain.UtxoKey{}, s.Utxos...),
		Total:        s.Total,
		CreatedAt:    s.CreatedAt,
	}
}

type selectionRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.SelectionEvent
	externalChEvents chan domain.SelectionEvent
	lock             *sync.Mutex
	closed           bool

	log func(format string, a ...interface{})
}

func NewSelectionRepository(store *badgerhold.Store) domain.SelectionRepository {
	return newSelectionRepository(store)
}

func newSelectionRepository(store *badgerhold.Store) *selectionRepository {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("selection repository: %s", format)
		log.Debugf(format, a...)
	}
	return &selectionRepository{
		store:            store,
		chEvents:         make(chan domain.SelectionEvent),
		externalChEvents: make(chan domain.SelectionEvent),
		lock:             &sync.Mutex{},
		log:              logFn,
	}
}

func (r *selectionRepository) AddSelection(
	ctx context.Context, selection *domain.Selection,
) (bool, error) {
	done, err := r.insertSelection(ctx, selection)
	if done {
		go r.publishEvent(domain.SelectionEvent{
			EventType: domain.SelectionAdded,
			Selection: *selection,
		})
	}
	return done, err
}

func (r *selectionRepository) GetSelection(
	ctx context.Context, id string,
) (*domain.Selection, error) {
	var err error
	var dto selectionDTO

	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, id, &dto)
	} else {
		err = r.store.Get(id, &dto)
	}

	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrSelectionNotFound
		}
		return nil, err
	}

	return dto.toDomain(), nil
}

func (r *selectionRepository) GetSelectionsForAddress(
	ctx context.Context, address string,
) ([]*domain.Selection, error) {
	query := badgerhold.Where("Address").Eq(address).
		SortBy("CreatedAt", "ID")

	return r.findSelections(ctx, query)
}

func (r *selectionRepository) GetAllSelections(
	ctx context.Context,
) ([]*domain.Selection, error) {
	query := (&badgerhold.Query{}).SortBy("CreatedAt", "ID")

	return r.findSelections(ctx, query)
}

func (r *selectionRepository) GetEventChannel() chan domain.SelectionEvent {
	return r.externalChEvents
}

func (r *selectionRepository) insertSelection(
	ctx context.Context, selection *domain.Selection,
) (bool, error) {
	var err error
	dto := toSelectionDTO(selection)
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(tx, dto.ID, dto)
	} else {
		err = r.store.Insert(dto.ID, dto)
	}

	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *selectionRepository) findSelections(
	ctx context.Context, query *badgerhold.Query,
) ([]*domain.Selection, error) {
	var list []selectionDTO
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &list, query)
	} else {
		err = r.store.Find(&list, query)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return []*domain.Selection{}, nil
		}
		return nil, err
	}

	selections := make([]*domain.Selection, 0, len(list))
	for _, dto := range list {
		selections = append(selections, dto.toDomain())
	}
	return selections, nil
}

func (r *selectionRepository) publishEvent(event domain.SelectionEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *selectionRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *selectionRepository) close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}
