package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	appconfig "github.com/vulpemventures/utxoprep/internal/app-config"
	"github.com/vulpemventures/utxoprep/internal/config"
	"github.com/vulpemventures/utxoprep/internal/core/application"
	blockchaininfo_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/blockchaininfo"
	electrum_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/electrum"
	esplora_ledger "github.com/vulpemventures/utxoprep/internal/infrastructure/ledger/esplora"
	postgresdb "github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/postgres"
	"github.com/vulpemventures/utxoprep/internal/interfaces"
	rest_interface "github.com/vulpemventures/utxoprep/internal/interfaces/rest"
	"github.com/vulpemventures/utxoprep/pkg/profiler"
)

var (
	// Build info.
	version string
	commit  string
	date    string

	// Config from env vars.
	dbType          = config.GetString(config.DatabaseTypeKey)
	ledgerType      = config.GetString(config.LedgerTypeKey)
	ledgerUrl       = config.GetLedgerUrl()
	ledgerTimeout   = time.Duration(config.GetInt(config.LedgerTimeoutKey)) * time.Second
	logLevel        = config.GetInt(config.LogLevelKey)
	datadir         = config.GetDatadir()
	port            = config.GetInt(config.PortKey)
	profilerPort    = config.GetInt(config.ProfilerPortKey)
	network         = config.GetNetwork()
	noTLS           = config.GetBool(config.NoTLSKey)
	noProfiler      = config.GetBool(config.NoProfilerKey)
	dbDir           = filepath.Join(datadir, config.DbLocation)
	tlsDir          = filepath.Join(datadir, config.TLSLocation)
	profilerDir     = filepath.Join(datadir, config.ProfilerLocation)
	tlsExtraIPs     = config.GetStringSlice(config.TLSExtraIPKey)
	tlsExtraDomains = config.GetStringSlice(config.TLSExtraDomainKey)
	statsInterval   = time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	strategy        = application.CoinSelectionStrategies[config.GetString(config.CoinSelectionStrategyKey)]
	maxTargetAmount = config.GetUint64(config.MaxTargetAmountKey)
	dbUser          = config.GetString(config.DbUserKey)
	dbPass          = config.GetString(config.DbPassKey)
	dbHost          = config.GetString(config.DbHostKey)
	dbPort          = config.GetInt(config.DbPortKey)
	dbName          = config.GetString(config.DbNameKey)
	migrationPath   = config.GetString(config.DbMigrationPath)
)

func main() {
	log.SetLevel(log.Level(logLevel))

	var metricsRegisterer prometheus.Registerer
	if profilerEnabled := !noProfiler; profilerEnabled {
		metricsRegisterer = prometheus.DefaultRegisterer

		profilerSvc, err := profiler.NewService(profiler.ServiceOpts{
			Port:          profilerPort,
			StatsInterval: statsInterval,
			Datadir:       profilerDir,
		})
		if err != nil {
			log.WithError(err).Fatal("profiler: error while starting")
		}

		profilerSvc.Start()
		defer func() {
			profilerSvc.Stop()
		}()
	}

	serviceCfg := rest_interface.ServiceConfig{
		Port:         port,
		NoTLS:        noTLS,
		TLSLocation:  tlsDir,
		ExtraIPs:     tlsExtraIPs,
		ExtraDomains: tlsExtraDomains,
	}
	appCfg := &appconfig.AppConfig{
		Version:               version,
		Commit:                commit,
		Date:                  date,
		Network:               network,
		CoinSelectionStrategy: strategy,
		MaxTargetAmount:       maxTargetAmount,
		RepoManagerType:       dbType,
		LedgerType:            ledgerType,
		RepoManagerConfig:     repoManagerConfig(),
		LedgerConfig:          ledgerConfig(),
		MetricsRegisterer:     metricsRegisterer,
	}

	serviceManager, err := interfaces.NewRestServiceManager(serviceCfg, appCfg)
	if err != nil {
		log.WithError(err).Fatal("service: error while initializing")
	}
	defer func() {
		serviceManager.Service.Stop()
	}()

	if err := serviceManager.Service.Start(); err != nil {
		log.WithError(err).Error("service: error while starting")
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
}

func repoManagerConfig() interface{} {
	switch dbType {
	case "badger":
		return dbDir
	case "postgres":
		return postgresdb.DbConfig{
			DbUser:             dbUser,
			DbPassword:         dbPass,
			DbHost:             dbHost,
			DbPort:             dbPort,
			DbName:             dbName,
			MigrationSourceURL: migrationPath,
		}
	default:
		return nil
	}
}

func ledgerConfig() interface{} {
	switch ledgerType {
	case "esplora":
		return esplora_ledger.ServiceArgs{
			Url:     ledgerUrl,
			Timeout: ledgerTimeout,
			Network: network,
		}
	case "electrum":
		return electrum_ledger.ServiceArgs{
			Addr:    ledgerUrl,
			Network: network,
		}
	default:
		return blockchaininfo_ledger.ServiceArgs{
			Url:     ledgerUrl,
			Timeout: ledgerTimeout,
		}
	}
}
