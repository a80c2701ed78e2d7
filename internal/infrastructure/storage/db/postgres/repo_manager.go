package postgresdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	postgresDriver             = "postgres"
	insecureDataSourceTemplate = "postgresql://%s:%s@%s:%d/%s?sslmode=disable"
)

type repoManager struct {
	pgxPool *pgxpool.Pool

	selectionRepository *selectionRepositoryPg

	selectionEventHandlers *handlerMap
}

type DbConfig struct {
	DbUser             string
	DbPassword         string
	DbHost             string
	DbPort             int
	DbName             string
	MigrationSourceURL string
}

func (c DbConfig) validate() error {
	if c.DbUser == "" {
		return fmt.Errorf("missing db user")
	}
	if c.DbHost == "" {
		return fmt.Errorf("missing db host")
	}
	if c.DbPort <= 0 {
		return fmt.Errorf("invalid db port")
	}
	if c.DbName == "" {
		return fmt.Errorf("missing db name")
	}
	if c.MigrationSourceURL == "" {
		return fmt.Errorf("missing migration source url")
	}
	return nil
}

func NewRepoManager(dbConfig DbConfig) (ports.RepoManager, error) {
	if err := dbConfig.validate(); err != nil {
		return nil, fmt.Errorf("invalid db config: %s", err)
	}

	dataSource := insecureDataSourceStr(dbConfig)

	pgxPool, err := connect(dataSource)
	if err != nil {
		return nil, err
	}

	if err = migrateDb(dataSource, dbConfig.MigrationSourceURL); err != nil {
		pgxPool.Close()
		return nil, err
	}

	rm := &repoManager{
		pgxPool:                pgxPool,
		selectionRepository:    newSelectionRepositoryPgImpl(pgxPool),
		selectionEventHandlers: newHandlerMap(),
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
	if err := rm.selectionRepository.reset(context.Background()); err != nil {
		log.WithError(err).Warn("failed to reset selection repository")
	}
}

func (rm *repoManager) Close() {
	rm.selectionRepository.close()
	rm.pgxPool.Close()
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

func connect(dataSource string) (*pgxpool.Pool, error) {
	return pgxpool.Connect(context.Background(), dataSource)
}

func migrateDb(dataSource, migrationSourceUrl string) error {
	pg := postgres.Postgres{}

	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationSourceUrl,
		postgresDriver,
		d,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func insecureDataSourceStr(dbConfig DbConfig) string {
	return fmt.Sprintf(
		insecureDataSourceTemplate,
		dbConfig.DbUser,
		dbConfig.DbPassword,
		dbConfig.DbHost,
		dbConfig.DbPort,
		dbConfig.DbName,
	)
}
