package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	tiered_selector "github.com/vulpemventures/utxoprep/internal/infrastructure/coin-selector/tiered"
)

var (
	selectAmount    string
	selectUtxosPath string

	selectCmd = &cobra.Command{
		Use:   "select",
		Short: "select offline the utxos to spend from a local list",
		Long: "this command runs the tiered coin selection (exact match, " +
			"smallest first, single larger) over the utxos listed in the given " +
			"JSON file, either an array of utxos or a blockchain.info unspent " +
			"outputs response",
		RunE: selectUtxos,
	}
)

func init() {
	selectCmd.Flags().StringVar(&selectAmount, "amount", "", "target amount in satoshis")
	selectCmd.Flags().StringVar(&selectUtxosPath, "utxos", "", "path of the JSON file listing the utxos")
	selectCmd.MarkFlagRequired("amount")
	selectCmd.MarkFlagRequired("utxos")
}

type selectResult struct {
	Strategy string            `json:"strategy"`
	Total    uint64            `json:"total"`
	Change   uint64            `json:"change"`
	TotalBTC string            `json:"total_btc"`
	Utxos    []domain.UtxoInfo `json:"utxos"`
}

func selectUtxos(_ *cobra.Command, _ []string) error {
	targetAmount, err := parseAmount(selectAmount)
	if err != nil {
		return err
	}

	buf, err := os.ReadFile(cleanAndExpandPath(selectUtxosPath))
	if err != nil {
		return err
	}
	utxos, err := parseUtxos(buf)
	if err != nil {
		return err
	}

	sort.SliceStable(utxos, func(i, j int) bool {
		return utxos[i].Value < utxos[j].Value
	})

	res, ok := tiered_selector.Select(utxos, targetAmount).(tiered_selector.Selected)
	if !ok {
		printErr(fmt.Errorf("not enough funds"))
		return nil
	}

	info := make([]domain.UtxoInfo, 0, len(res.Utxos))
	for _, u := range res.Utxos {
		info = append(info, u.Info())
	}
	out, _ := json.MarshalIndent(selectResult{
		Strategy: res.Strategy.String(),
		Total:    res.Total,
		Change:   res.Total - targetAmount,
		TotalBTC: btcutil.Amount(res.Total).String(),
		Utxos:    info,
	}, "", "  ")
	fmt.Println(string(out))
	return nil
}

// parseUtxos accepts either a plain JSON array of utxos or an object with
// the list under unspent_outputs.
func parseUtxos(buf []byte) ([]*domain.Utxo, error) {
	var infos []domain.UtxoInfo
	if trimmed := bytes.TrimSpace(buf); len(trimmed) > 0 && trimmed[0] == '{' {
		payload := struct {
			UnspentOutputs []domain.UtxoInfo `json:"unspent_outputs"`
		}{}
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, fmt.Errorf("invalid utxos file: %s", err)
		}
		infos = payload.UnspentOutputs
	} else if err := json.Unmarshal(buf, &infos); err != nil {
		return nil, fmt.Errorf("invalid utxos file: %s", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("no utxos found in file")
	}

	utxos := make([]*domain.Utxo, 0, len(infos))
	for _, info := range infos {
		utxo, err := domain.NewUtxoFromInfo(info)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, utxo)
	}
	return utxos, nil
}

func parseAmount(amount string) (uint64, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil || !value.IsPositive() || !value.IsInteger() {
		return 0, fmt.Errorf("amount must be a positive integer number of satoshis")
	}
	if !value.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount too large")
	}
	return value.BigInt().Uint64(), nil
}
