package main

import (
	"os"

	"statement-reconciliation-backend/cmd/reconctl/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ReportError(os.Stderr, err))
	}
}
