package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear <scraper>",
	Short: "Remove all completed/failed tasks of a scraper, running tasks are kept.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var body struct {
			ClearedCount int `json:"cleared_count"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetResult(&body).
			Delete(fmt.Sprintf("/api/%s/tasks", args[0]))
		if err != nil {
			failErr(err)
		}
		if res.IsError() {
			fail(res)
		}

		fmt.Printf("cleared %d tasks\n", body.ClearedCount)
	},
}
