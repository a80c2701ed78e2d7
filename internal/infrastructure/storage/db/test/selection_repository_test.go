package db_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
	dbbadger "github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/postgres"
)

var (
	ctx          = context.Background()
	address      = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	wrongAddress = "12c6DSiU4Rq3P4ZxziKxzrGuvqqt5Vy7Ht"
	txid         = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
)

func TestSelectionRepository(t *testing.T) {
	repoManagers, err := newRepoManagers(t)
	require.NoError(t, err)

	for name, repoManager := range repoManagers {
		repoManager := repoManager
		t.Run(name, func(t *testing.T) {
			defer repoManager.Close()
			repoManager.Reset()

			chEvents := make(chan domain.SelectionEvent, 10)
			repoManager.RegisterHandlerForSelectionEvent(
				domain.SelectionAdded, func(event domain.SelectionEvent) {
					chEvents <- event
				},
			)

			testSelectionRepository(t, repoManager.SelectionRepository(), chEvents)
		})
	}
}

func testSelectionRepository(
	t *testing.T, repo domain.SelectionRepository,
	chEvents chan domain.SelectionEvent,
) {
	first := newSelection(t, address, 1000, 300, 700)
	second := newSelection(t, address, 500, 600)
	second.CreatedAt = first.CreatedAt + 1
	other := newSelection(t, wrongAddress, 100, 100)

	t.Run("add_selection", func(t *testing.T) {
		for _, s := range []*domain.Selection{first, second, other} {
			done, err := repo.AddSelection(ctx, s)
			require.NoError(t, err)
			require.True(t, done)
		}

		done, err := repo.AddSelection(ctx, first)
		require.NoError(t, err)
		require.False(t, done)

		for i := 0; i < 3; i++ {
			select {
			case event := <-chEvents:
				require.Equal(t, domain.SelectionAdded, event.EventType)
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for selection event")
			}
		}
	})

	t.Run("get_selection", func(t *testing.T) {
		selection, err := repo.GetSelection(ctx, first.ID)
		require.NoError(t, err)
		require.Equal(t, *first, *selection)

		selection, err = repo.GetSelection(ctx, uuid.New().String())
		require.ErrorIs(t, err, domain.ErrSelectionNotFound)
		require.Nil(t, selection)
	})

	t.Run("get_selections_for_address", func(t *testing.T) {
		selections, err := repo.GetSelectionsForAddress(ctx, address)
		require.NoError(t, err)
		require.Len(t, selections, 2)
		require.Equal(t, first.ID, selections[0].ID)
		require.Equal(t, second.ID, selections[1].ID)

		selections, err = repo.GetSelectionsForAddress(ctx, "unknown")
		require.NoError(t, err)
		require.Empty(t, selections)
	})

	t.Run("get_all_selections", func(t *testing.T) {
		selections, err := repo.GetAllSelections(ctx)
		require.NoError(t, err)
		require.Len(t, selections, 3)
	})
}

func newSelection(
	t *testing.T, addr string, target uint64, values ...uint64,
) *domain.Selection {
	utxos := make([]*domain.Utxo, 0, len(values))
	for i, v := range values {
		utxos = append(utxos, &domain.Utxo{
			UtxoKey: domain.UtxoKey{TxID: txid, VOut: uint32(i)},
			Value:   v,
		})
	}
	selection, err := domain.NewSelection(
		uuid.New().String(), addr, target, domain.StrategyExactMatch, utxos,
	)
	require.NoError(t, err)
	return selection
}

// newRepoManagers returns the repo managers to test. Postgres is included only
// if a test database is configured via env vars.
func newRepoManagers(t *testing.T) (map[string]ports.RepoManager, error) {
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil)
	if err != nil {
		return nil, err
	}
	repoManagers := map[string]ports.RepoManager{
		"inmemory": inmemory.NewRepoManager(),
		"badger":   badgerRepoManager,
	}

	dbHost := os.Getenv("UTXOPREP_TEST_DB_HOST")
	if dbHost == "" {
		t.Log("UTXOPREP_TEST_DB_HOST not set, skipping postgres repository")
		return repoManagers, nil
	}
	dbPort, _ := strconv.Atoi(os.Getenv("UTXOPREP_TEST_DB_PORT"))
	if dbPort == 0 {
		dbPort = 5432
	}
	pgRepoManager, err := postgresdb.NewRepoManager(postgresdb.DbConfig{
		DbUser:     "root",
		DbPassword: "secret",
		DbHost:     dbHost,
		DbPort:     dbPort,
		DbName:     "utxoprep-db-test",
		MigrationSourceURL: "file://../../../../.." +
			"/internal/infrastructure/storage/db/postgres/migration",
	})
	if err != nil {
		return nil, err
	}
	repoManagers["postgres"] = pgRepoManager

	return repoManagers, nil
}
