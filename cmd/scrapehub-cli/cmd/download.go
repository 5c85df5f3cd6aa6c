package cmd

import (
	"fmt"
	"mime"
	"os"

	"github.com/spf13/cobra"
)

var downloadFormat string
var downloadOut string

func init() {
	downloadCmd.Flags().StringVar(&downloadFormat, "format", "json", "Export format, json or csv.")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "", "Output path, defaults to the server-provided filename.")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download <scraper> <task-id>",
	Short: "Download the full result set of a completed task.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetQueryParam("format", downloadFormat).
			Get(fmt.Sprintf("/api/%s/tasks/%s/download", args[0], args[1]))
		if err != nil {
			failErr(err)
		}
		if res.IsError() {
			fail(res)
		}

		out := downloadOut
		if out == "" {
			out = attachmentFilename(res.Header().Get("Content-Disposition"))
		}
		if out == "" {
			out = fmt.Sprintf("%s.%s", args[1], downloadFormat)
		}

		err = os.WriteFile(out, res.Body(), 0644)
		if err != nil {
			failErr(err)
		}
		fmt.Println(out)
	},
}

func attachmentFilename(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
