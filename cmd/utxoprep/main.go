package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	daemonDatadir = btcutil.AppDataDir("utxoprepd", false)
	datadir       = btcutil.AppDataDir("utxoprep-cli", false)
	statePath     = filepath.Join(datadir, "state.json")

	rootCmd = &cobra.Command{
		Use:   "utxoprep",
		Short: "CLI for utxoprep",
		Long: "This CLI lets you interact with a running utxoprep daemon, or " +
			"select offline the utxos to spend from a local list",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if _, err := os.Stat(datadir); os.IsNotExist(err) {
				os.Mkdir(datadir, os.ModeDir|0755)
			}
		},
		SilenceUsage: true,
		Version:      formatVersion(),
	}
)

func init() {
	rootCmd.AddCommand(configCmd, prepareCmd, selectCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initialState() map[string]string {
	return map[string]string{
		"server":        "localhost:18010",
		"no_tls":        strconv.FormatBool(false),
		"tls_cert_path": filepath.Join(daemonDatadir, "mainnet", "tls", "cert.pem"),
	}
}
