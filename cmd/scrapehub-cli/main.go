package main

import (
	"os"

	"scrapehub-backend/cmd/scrapehub-cli/cmd"
)

func main() {
	baseUrl, ok := os.LookupEnv("SCRAPEHUB_BASE_URL")
	if ok {
		cmd.BaseUrl = baseUrl
	}
	cmd.AccessToken = os.Getenv("SCRAPEHUB_ACCESS_TOKEN")

	cmd.Execute()
}
