package cmd

import (
	"fmt"
	"sort"

	"scrapehub-backend/cmd/scrapehub-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var resultsPage int
var resultsPageSize int

func init() {
	resultsCmd.Flags().IntVar(&resultsPage, "page", 1, "Page number, starting from 1.")
	resultsCmd.Flags().IntVar(&resultsPageSize, "page-size", 20, "Records per page.")
	rootCmd.AddCommand(resultsCmd)
}

var resultsCmd = &cobra.Command{
	Use:   "results <scraper> <task-id>",
	Short: "List one page of a completed task's results.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			Results     []map[string]any `json:"results"`
			CurrentPage int              `json:"current_page"`
			TotalItems  int              `json:"total_items"`
			TotalPages  int              `json:"total_pages"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetQueryParams(map[string]string{
				"page":      fmt.Sprint(resultsPage),
				"page_size": fmt.Sprint(resultsPageSize),
			}).
			SetResult(&body).
			Get(fmt.Sprintf("/api/%s/tasks/%s/results", args[0], args[1]))
		if err != nil {
			failErr(err)
		}
		if res.IsError() {
			fail(res)
		}

		keySet := map[string]struct{}{}
		for _, record := range body.Results {
			for key := range record {
				keySet[key] = struct{}{}
			}
		}
		keys := make([]string, 0, len(keySet))
		for key := range keySet {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		t := utils.NewTable()
		header := table.Row{}
		for _, key := range keys {
			header = append(header, key)
		}
		t.AppendHeader(header)
		for _, record := range body.Results {
			row := table.Row{}
			for _, key := range keys {
				row = append(row, record[key])
			}
			t.AppendRow(row)
		}
		t.Render()

		fmt.Printf("page %d of %d (%d records total)\n", body.CurrentPage, body.TotalPages, body.TotalItems)
	},
}
