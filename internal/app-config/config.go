package appconfig

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/utxoprep/internal/config"
	"github.com/vulpemventures/utxoprep/internal/core/application"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
	blockchaininfo_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/blockchaininfo"
	electrum_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/electrum"
	esplora_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/esplora"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/metrics"
	dbbadger "github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/postgres"
)

// AppConfig is the struct holding all configuration options for the prepare
// application service.
// This data structure acts also as a factory of the mentioned application
// service and the portable services used by it.
// Public config args:
//   - Network - (required) The Bitcoin network (mainnet, testnet, regtest).
//   - CoinSelectionStrategy - (optional) One of the supported coin selection strategies (defaults to tiered).
//   - MaxTargetAmount - (optional) The largest amount for which an exact match is searched, 0 means no limit.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - LedgerType - (required) One of the supported ledger service types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - LedgerConfig - (optional) Custom config args for the ledger service based on its type.
//   - MetricsRegisterer - (optional) The prometheus registerer where to export metrics, if nil metrics are disabled.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	Network               *chaincfg.Params
	CoinSelectionStrategy int
	MaxTargetAmount       uint64

	RepoManagerType   string
	LedgerType        string
	RepoManagerConfig interface{}
	LedgerConfig      interface{}
	MetricsRegisterer prometheus.Registerer

	rm         ports.RepoManager
	ledger     ports.LedgerService
	selector   ports.CoinSelector
	metrics    ports.MetricsCollector
	prepareSvc *application.PrepareService
}

func (c *AppConfig) Validate() error {
	if c.Network == nil {
		return fmt.Errorf("missing network")
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if len(c.LedgerType) == 0 {
		return fmt.Errorf("missing ledger type")
	}
	if _, ok := config.SupportedLedgers[c.LedgerType]; !ok {
		return fmt.Errorf(
			"ledger type not supported, must be one of: %s",
			config.SupportedLedgers,
		)
	}
	if _, err := c.coinSelector(); err != nil {
		return err
	}
	if _, err := c.metricsCollector(); err != nil {
		return err
	}
	if _, err := c.ledgerService(); err != nil {
		return err
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) LedgerService() ports.LedgerService {
	return c.ledger
}

func (c *AppConfig) PrepareService() *application.PrepareService {
	return c.prepareService()
}

func (c *AppConfig) BuildInfo() application.BuildInfo {
	version := "dev"
	if c.Version != "" {
		version = c.Version
	}
	commit := "none"
	if c.Commit != "" {
		commit = c.Commit
	}
	date := "unknown"
	if c.Date != "" {
		date = c.Date
	}
	return application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) ledgerService() (ports.LedgerService, error) {
	if c.ledger != nil {
		return c.ledger, nil
	}

	switch c.LedgerType {
	case "blockchaininfo":
		if c.LedgerConfig == nil {
			return nil, fmt.Errorf("missing ledger config args")
		}
		args, ok := c.LedgerConfig.(blockchaininfo_ledger.ServiceArgs)
		if !ok {
			return nil, fmt.Errorf(
				"invalid ledger config type, must be " +
					"blockchaininfo_ledger.ServiceArgs",
			)
		}
		ledger, err := blockchaininfo_ledger.NewService(args)
		if err != nil {
			return nil, err
		}
		c.ledger = ledger
		return c.ledger, nil
	case "esplora":
		if c.LedgerConfig == nil {
			return nil, fmt.Errorf("missing ledger config args")
		}
		args, ok := c.LedgerConfig.(esplora_ledger.ServiceArgs)
		if !ok {
			return nil, fmt.Errorf(
				"invalid ledger config type, must be esplora_ledger.ServiceArgs",
			)
		}
		if args.Network == nil {
			args.Network = c.Network
		}
		ledger, err := esplora_ledger.NewService(args)
		if err != nil {
			return nil, err
		}
		c.ledger = ledger
		return c.ledger, nil
	case "electrum":
		if c.LedgerConfig == nil {
			return nil, fmt.Errorf("missing ledger config args")
		}
		args, ok := c.LedgerConfig.(electrum_ledger.ServiceArgs)
		if !ok {
			return nil, fmt.Errorf(
				"invalid ledger config type, must be electrum_ledger.ServiceArgs",
			)
		}
		if args.Network == nil {
			args.Network = c.Network
		}
		ledger, err := electrum_ledger.NewService(args)
		if err != nil {
			return nil, err
		}
		c.ledger = ledger
		return c.ledger, nil
	default:
		return nil, fmt.Errorf("unknown ledger type")
	}
}

func (c *AppConfig) coinSelector() (ports.CoinSelector, error) {
	if c.selector != nil {
		return c.selector, nil
	}

	selector, err := application.NewCoinSelector(
		c.CoinSelectionStrategy, c.MaxTargetAmount,
	)
	if err != nil {
		return nil, err
	}
	c.selector = selector
	return c.selector, nil
}

func (c *AppConfig) metricsCollector() (ports.MetricsCollector, error) {
	if c.metrics != nil || c.MetricsRegisterer == nil {
		return c.metrics, nil
	}

	collector, err := metrics.NewCollector(c.MetricsRegisterer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %s", err)
	}
	c.metrics = collector
	return c.metrics, nil
}

func (c *AppConfig) prepareService() *application.PrepareService {
	if c.prepareSvc != nil {
		return c.prepareSvc
	}

	rm, _ := c.repoManager()
	ledger, _ := c.ledgerService()
	selector, _ := c.coinSelector()
	metrics, _ := c.metricsCollector()
	c.prepareSvc = application.NewPrepareService(rm, ledger, selector, metrics)
	return c.prepareSvc
}
