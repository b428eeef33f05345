package main

import (
	"fmt"
	"os"

	"caswitch/cmd"
	"caswitch/config/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		info := models.CategorizeErrorWithInfo(err)
		fmt.Fprintf(os.Stderr, "Error: %s\n", info.Message)
		if info.Category != models.ErrorCategoryUnknown && info.Category != models.ErrorCategoryCancelled {
			fmt.Fprintf(os.Stderr, "%s\n", info.UserMessage)
		}
		os.Exit(1)
	}
}
