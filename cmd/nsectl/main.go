// Command nsectl is the diagnostic and bootstrap CLI for a device
// participating in a sync namespace: link, status, sync, conflicts, and
// key-rotation inspection.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nous-sync/nse/cmd/nsectl/commands"
	"github.com/nous-sync/nse/pkg/syncclient"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: 0 success, 1 irrecoverable, 2 schema too old, 3 lock held,
// 4 integrity failure.
const (
	exitOK            = 0
	exitIrrecoverable = 1
	exitSchemaTooOld  = 2
	exitLockHeld      = 3
	exitIntegrity     = 4
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var problem *syncclient.ProblemError
	if errors.As(err, &problem) {
		switch {
		case problem.IsUpgradeRequired():
			return exitSchemaTooOld
		case problem.IsConflict():
			return exitLockHeld
		case problem.IsIntegrityFailure():
			return exitIntegrity
		}
	}
	return exitIrrecoverable
}
