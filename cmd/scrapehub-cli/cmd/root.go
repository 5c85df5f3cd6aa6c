package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var BaseUrl = "http://localhost:8000"
var AccessToken string

var client *resty.Client

var rootCmd = &cobra.Command{
	Use:   "scrapehub-cli",
	Short: "scrapehub-cli is a CLI interface for the scrapehub scrape-task service.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = resty.New().SetBaseURL(BaseUrl)
		if AccessToken != "" {
			client.SetAuthToken(AccessToken)
		}
	},
}

func Execute() {
	rootCmd.PersistentFlags().StringVar(
		&BaseUrl, "addr", BaseUrl,
		"Base url of the scrapehub server.",
	)
	rootCmd.PersistentFlags().StringVar(
		&AccessToken, "token", AccessToken,
		"Bearer access token, if the server requires one.",
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

// fail prints the server's error envelope if the body is one, the raw
// body otherwise, then exits.
func fail(res *resty.Response) {
	var body errorBody
	err := json.Unmarshal(res.Body(), &body)
	if err == nil && body.Error != "" {
		fmt.Fprintln(os.Stderr, body.Error)
	} else {
		fmt.Fprintln(os.Stderr, res.String())
	}
	os.Exit(1)
}

func failErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
