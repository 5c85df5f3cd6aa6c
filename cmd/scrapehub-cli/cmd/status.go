package cmd

import (
	"fmt"

	"scrapehub-backend/cmd/scrapehub-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <scraper> <task-id>",
	Short: "Show the current status of a task.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			TaskID       string           `json:"task_id"`
			Status       string           `json:"status"`
			Progress     int              `json:"progress"`
			Message      string           `json:"message"`
			Error        string           `json:"error"`
			TotalResults int              `json:"total_results"`
			Counters     map[string]int64 `json:"counters"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetResult(&body).
			Get(fmt.Sprintf("/api/%s/tasks/%s", args[0], args[1]))
		if err != nil {
			failErr(err)
		}
		if res.IsError() {
			fail(res)
		}

		t := utils.NewTable()
		t.AppendRow(table.Row{"status", body.Status})
		t.AppendRow(table.Row{"progress", fmt.Sprintf("%d%%", body.Progress)})
		if body.Message != "" {
			t.AppendRow(table.Row{"message", body.Message})
		}
		if body.Error != "" {
			t.AppendRow(table.Row{"error", body.Error})
		}
		t.AppendRow(table.Row{"total results", body.TotalResults})
		for name, value := range body.Counters {
			t.AppendRow(table.Row{name, value})
		}
		t.Render()
	},
}
