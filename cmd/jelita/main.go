// cmd/jelita/main.go
package main

import (
	"os"

	"jelita/cmd/jelita/commands"
)

// Set during build with -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
