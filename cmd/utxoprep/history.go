package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	historyAddress string
	selectionId    string

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "list the selections made by the daemon",
		Long: "this command returns the history of selections made by the " +
			"utxoprep daemon, optionally filtered by address, or a single one " +
			"if its id is given",
		RunE: history,
	}
)

func init() {
	historyCmd.Flags().StringVar(
		&historyAddress, "address", "", "list only the selections for this address",
	)
	historyCmd.Flags().StringVar(
		&selectionId, "id", "", "get the selection with the given id",
	)
}

func history(_ *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	defer client.close()

	path := "/api/selections"
	query := url.Values{}
	if selectionId != "" {
		path = fmt.Sprintf("%s/%s", path, url.PathEscape(selectionId))
	} else if historyAddress != "" {
		query.Set("address", historyAddress)
	}

	res, err := client.get(path, query)
	if err != nil {
		return err
	}
	if res.status != http.StatusOK {
		printErr(res.err())
		return nil
	}

	fmt.Println(jsonResponse(res.body))
	return nil
}
