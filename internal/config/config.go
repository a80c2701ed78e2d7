package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the key to customize the utxoprep datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database to use.
	DatabaseTypeKey = "DATABASE_TYPE"
	// LedgerTypeKey is the key to customize the type of ledger service to
	// fetch the unspent outputs of an address from.
	LedgerTypeKey = "LEDGER_TYPE"
	// LedgerUrlKey is the key to customize the endpoint of the ledger service.
	// For the electrum ledger this is the address of the server, with one of
	// the ws://, wss://, tcp:// or ssl:// schemes.
	LedgerUrlKey = "LEDGER_URL"
	// LedgerTimeoutKey is the key to customize the timeout for the requests
	// to http ledger services.
	LedgerTimeoutKey = "LEDGER_TIMEOUT_IN_SECONDS"
	// PortKey is the key to customize the port where the service will be listening to.
	PortKey = "PORT"
	// ProfilerPortKey is the key to customize the port where the profiler will
	// be listening to.
	ProfilerPortKey = "PROFILER_PORT"
	// NetworkKey is the key to customize the Bitcoin network.
	NetworkKey = "NETWORK"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// TLSExtraIPKey is the key to bind one or more public IPs to the TLS key pair.
	// Should be used only when enabling TLS.
	TLSExtraIPKey = "TLS_EXTRA_IP"
	// TLSExtraDomainKey is the key to bind one or more public dns domains to the
	// TLS key pair. Should be used only when enabling TLS.
	TLSExtraDomainKey = "TLS_EXTRA_DOMAIN"
	// NoTLSKey is the key to disable TLS encryption.
	NoTLSKey = "NO_TLS"
	// NoProfilerKey is the key to disable Prometheus profiling.
	NoProfilerKey = "NO_PROFILER"
	// StatsIntervalKey is the key to customize the interval for the profiled to
	// gather profiling stats.
	StatsIntervalKey = "STATS_INTERVAL"
	// CoinSelectionStrategyKey is the key to customize the strategy used to
	// select the utxos to spend.
	CoinSelectionStrategyKey = "COIN_SELECTION_STRATEGY"
	// MaxTargetAmountKey is the key to customize the largest amount for which
	// an exact match is searched among all combinations of utxos. The cost of
	// the search grows linearly with the amount. 0 means no limit.
	MaxTargetAmountKey = "MAX_TARGET_AMOUNT"
	// DbUserKey is user used to connect to db
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files
	DbMigrationPath = "DB_MIGRATION_PATH"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// TLSLocation is the folder inside the datadir containing TLS key and
	// certificate.
	TLSLocation = "tls"
	// ProfilerLocation is the folder inside the datadir containing profiler
	// stats files.
	ProfilerLocation = "stats"
)

var (
	vip *viper.Viper

	defaultDatadir               = btcutil.AppDataDir("utxoprepd", false)
	defaultDbType                = "badger"
	defaultLedgerType            = "blockchaininfo"
	defaultLedgerTimeout         = 15
	defaultPort                  = 18010
	defaultLogLevel              = 4
	defaultNetwork               = "mainnet"
	defaultProfilerPort          = 18011
	defaultStatsInterval         = 600 // 10 minutes
	defaultCoinSelectionStrategy = "tiered"
	defaultMaxTargetAmount       = 1000000

	defaultLedgerUrls = map[string]string{
		"blockchaininfo": "https://blockchain.info",
		"esplora":        "https://blockstream.info/api",
		"electrum":       "ssl://electrum.blockstream.info:50002",
	}

	supportedNetworks = map[string]*chaincfg.Params{
		"mainnet": &chaincfg.MainNetParams,
		"testnet": &chaincfg.TestNet3Params,
		"regtest": &chaincfg.RegressionNetParams,
	}
	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
		"postgres": {},
	}
	SupportedLedgers = supportedType{
		"blockchaininfo": {},
		"esplora":        {},
		"electrum":       {},
	}
	SupportedCoinSelectionStrategies = supportedType{
		"tiered":          {},
		"smallest-subset": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("UTXOPREP")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(LedgerTypeKey, defaultLedgerType)
	vip.SetDefault(LedgerTimeoutKey, defaultLedgerTimeout)
	vip.SetDefault(PortKey, defaultPort)
	vip.SetDefault(NetworkKey, defaultNetwork)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(NoTLSKey, false)
	vip.SetDefault(NoProfilerKey, false)
	vip.SetDefault(ProfilerPortKey, defaultProfilerPort)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)
	vip.SetDefault(CoinSelectionStrategyKey, defaultCoinSelectionStrategy)
	vip.SetDefault(MaxTargetAmountKey, defaultMaxTargetAmount)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "utxoprep-db-pg")
	vip.SetDefault(DbMigrationPath, "file://internal/infrastructure/storage/db/postgres/migration")

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	net := GetString(NetworkKey)
	if len(net) == 0 {
		return fmt.Errorf("network must not be null")
	}
	if _, ok := supportedNetworks[net]; !ok {
		nets := make([]string, 0, len(supportedNetworks))
		for net := range supportedNetworks {
			nets = append(nets, net)
		}
		return fmt.Errorf("unknown network, must be one of: %v", nets)
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	ledgerType := GetString(LedgerTypeKey)
	if _, ok := SupportedLedgers[ledgerType]; !ok {
		return fmt.Errorf(
			"unsupported ledger type, must be one of %s", SupportedLedgers,
		)
	}
	if GetInt(LedgerTimeoutKey) <= 0 {
		return fmt.Errorf("ledger timeout must be a positive number of seconds")
	}

	strategy := GetString(CoinSelectionStrategyKey)
	if _, ok := SupportedCoinSelectionStrategies[strategy]; !ok {
		return fmt.Errorf(
			"unsupported coin selection strategy, must be one of %s",
			SupportedCoinSelectionStrategies,
		)
	}
	if GetInt(MaxTargetAmountKey) < 0 {
		return fmt.Errorf("max target amount must not be negative")
	}

	port := GetInt(PortKey)
	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		profilerPort := GetInt(ProfilerPortKey)
		if port == profilerPort {
			return fmt.Errorf("port and profiler port must not be equal")
		}
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(NetworkKey))
}

func GetNetwork() *chaincfg.Params {
	return supportedNetworks[GetString(NetworkKey)]
}

// GetLedgerUrl returns the configured ledger url, or the default one for the
// configured ledger type.
func GetLedgerUrl() string {
	if url := GetString(LedgerUrlKey); url != "" {
		return url
	}
	return defaultLedgerUrls[GetString(LedgerTypeKey)]
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}

	noTls := GetBool(NoTLSKey)
	if noTls {
		return nil
	}
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, TLSLocation)); err != nil {
		return err
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}
