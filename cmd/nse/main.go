// Command nse is the sync relay: it accepts device registrations, brokers
// the namespace lock, and resolves push/pull change-set traffic.
package main

import (
	"fmt"
	"os"

	"github.com/nous-sync/nse/cmd/nse/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
