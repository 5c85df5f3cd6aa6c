package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit <scraper> [params-json]",
	Short: "Submit a scrape task, params-json defaults to '{}'.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		scraper := args[0]
		params := "{}"
		if len(args) == 2 {
			params = args[1]
		}
		var check map[string]any
		err := json.Unmarshal([]byte(params), &check)
		if err != nil {
			failErr(fmt.Errorf("params must be a json object: %w", err))
		}

		var body struct {
			TaskID string `json:"task_id"`
			Status string `json:"status"`
		}
		res, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("Content-Type", "application/json").
			SetBody(params).
			SetResult(&body).
			Post(fmt.Sprintf("/api/%s/tasks", scraper))
		if err != nil {
			failErr(err)
		}
		if res.IsError() {
			fail(res)
		}

		fmt.Println(body.TaskID)
	},
}
