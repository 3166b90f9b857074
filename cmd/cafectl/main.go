package main

import (
	"os"

	"cafepanel/cmd/cafectl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Errors are already printed by the printer package.
	if err := commands.Execute(version, commit, date); err != nil {
		os.Exit(1)
	}
}
