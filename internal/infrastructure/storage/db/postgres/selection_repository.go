package postgresdb

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

const (
	uniqueViolation = "23505"

	insertSelectionQuery = `
INSERT INTO selection (id, address, target_amount, strategy, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	insertSelectionUtxoQuery = `
INSERT INTO selection_utxo (fk_selection_id, position, tx_id, vout)
VALUES ($1, $2, $3, $4)`
	selectSelectionsQuery = `
SELECT s.id, s.address, s.target_amount, s.strategy, s.total, s.created_at,
       u.tx_id, u.vout
FROM selection s
LEFT JOIN selection_utxo u ON u.fk_selection_id = s.id`
	orderBy                = ` ORDER BY s.created_at, s.id, u.position`
	selectSelectionByID    = selectSelectionsQuery + ` WHERE s.id = $1` + orderBy
	selectSelectionsByAddr = selectSelectionsQuery + ` WHERE s.address = $1` + orderBy
	selectAllSelections    = selectSelectionsQuery + orderBy
	truncateQuery          = `TRUNCATE TABLE selection_utxo, selection`
)

type selectionRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.SelectionEvent
	externalChEvents chan domain.SelectionEvent
	closed           bool
}

func NewSelectionRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.SelectionRepository {
	return newSelectionRepositoryPgImpl(pgxPool)
}

func newSelectionRepositoryPgImpl(pgxPool *pgxpool.Pool) *selectionRepositoryPg {
	return &selectionRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.SelectionEvent),
		externalChEvents: make(chan domain.SelectionEvent),
	}
}

func (s *selectionRepositoryPg) AddSelection(
	ctx context.Context, selection *domain.Selection,
) (bool, error) {
	tx, err := s.pgxPool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, insertSelectionQuery,
		selection.ID, selection.Address, int64(selection.TargetAmount),
		int(selection.Strategy), int64(selection.Total), selection.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}

	for i, key := range selection.Utxos {
		if _, err := tx.Exec(
			ctx, insertSelectionUtxoQuery,
			selection.ID, i, key.TxID, int64(key.VOut),
		); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	go s.publishEvent(domain.SelectionEvent{
		EventType: domain.SelectionAdded,
		Selection: *selection,
	})

	return true, nil
}

func (s *selectionRepositoryPg) GetSelection(
	ctx context.Context, id string,
) (*domain.Selection, error) {
	selections, err := s.querySelections(ctx, selectSelectionByID, id)
	if err != nil {
		return nil, err
	}
	if len(selections) <= 0 {
		return nil, domain.ErrSelectionNotFound
	}
	return selections[0], nil
}

func (s *selectionRepositoryPg) GetSelectionsForAddress(
	ctx context.Context, address string,
) ([]*domain.Selection, error) {
	return s.querySelections(ctx, selectSelectionsByAddr, address)
}

func (s *selectionRepositoryPg) GetAllSelections(
	ctx context.Context,
) ([]*domain.Selection, error) {
	return s.querySelections(ctx, selectAllSelections)
}

func (s *selectionRepositoryPg) GetEventChannel() chan domain.SelectionEvent {
	return s.externalChEvents
}

// querySelections groups the rows of the selection/utxo join by selection,
// relying on the rows being ordered by selection first.
func (s *selectionRepositoryPg) querySelections(
	ctx context.Context, query string, args ...interface{},
) ([]*domain.Selection, error) {
	rows, err := s.pgxPool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := make([]*domain.Selection, 0)
	var current *domain.Selection
	for rows.Next() {
		var (
			id, address                    string
			targetAmount, total, createdAt int64
			strategy                       int
			txid                           *string
			vout                           *int64
		)
		if err := rows.Scan(
			&id, &address, &targetAmount, &strategy, &total, &createdAt,
			&txid, &vout,
		); err != nil {
			return nil, err
		}

		if current == nil || current.ID != id {
			current = &domain.Selection{
				ID:           id,
				Address:      address,
				TargetAmount: uint64(targetAmount),
				Strategy:     domain.Strategy(strategy),
				Utxos:        make([]domain.UtxoKey, 0),
				Total:        uint64(total),
				CreatedAt:    createdAt,
			}
			selections = append(selections, current)
		}
		if txid != nil && vout != nil {
			current.Utxos = append(current.Utxos, domain.UtxoKey{
				TxID: *txid,
				VOut: uint32(*vout),
			})
		}
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return selections, nil
}

func (s *selectionRepositoryPg) publishEvent(event domain.SelectionEvent) {
	s.chLock.Lock()
	defer s.chLock.Unlock()

	if s.closed {
		return
	}

	s.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case s.externalChEvents <- event:
	default:
	}
}

func (s *selectionRepositoryPg) reset(ctx context.Context) error {
	_, err := s.pgxPool.Exec(ctx, truncateQuery)
	return err
}

func (s *selectionRepositoryPg) close() {
	s.chLock.Lock()
	defer s.chLock.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.chEvents)
	close(s.externalChEvents)
}
