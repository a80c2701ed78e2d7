package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	address string
	amount  string

	prepareCmd = &cobra.Command{
		Use:   "prepare",
		Short: "prepare the utxos to spend for a payment",
		Long: "this command asks the utxoprep daemon for the utxos of the given " +
			"address to spend to cover the given amount (in satoshis)",
		RunE: prepare,
	}
)

func init() {
	prepareCmd.Flags().StringVar(&address, "address", "", "address owning the utxos")
	prepareCmd.Flags().StringVar(&amount, "amount", "", "target amount in satoshis")
	prepareCmd.MarkFlagRequired("address")
	prepareCmd.MarkFlagRequired("amount")
}

func prepare(_ *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	defer client.close()

	query := url.Values{}
	query.Set("address", address)
	query.Set("amount", amount)

	res, err := client.get("/api/prepare-unspent-outputs/", query)
	if err != nil {
		return err
	}
	if res.status != http.StatusOK {
		printErr(res.err())
		return nil
	}

	fmt.Printf(
		"selection: %s\nstrategy: %s\n",
		res.header.Get("X-Selection-Id"), res.header.Get("X-Selection-Strategy"),
	)
	fmt.Println(jsonResponse(res.body))
	return nil
}
