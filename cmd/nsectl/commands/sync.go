package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/cmd/nsectl/cmdutil"
	"github.com/nous-sync/nse/internal/cli/output"
	"github.com/nous-sync/nse/pkg/syncclient"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull accumulated changes from the relay",
	Long: `Force a pull cycle against the linked relay: fetch every change set
accumulated since this device's last cursor, apply each one to local
node state via vector-compare routing, and advance the cursor.

nsectl has no application-level node data of its own to push, so this
only drives the pull half of a sync cycle; it is meant for diagnosing
whether pushes from other devices are actually propagating.`,
	RunE: runSync,
}

type pulledChangesTable struct {
	cursor int64
	count  int
}

func (t pulledChangesTable) Headers() []string {
	return []string{"Cursor", "Changes Pulled"}
}

func (t pulledChangesTable) Rows() [][]string {
	return [][]string{{fmt.Sprintf("%d", t.cursor), fmt.Sprintf("%d", t.count)}}
}

func runSync(cmd *cobra.Command, args []string) error {
	client, devCtx, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	local, err := cmdutil.OpenLocalStore()
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() { _ = local.Close() }()

	syncer := syncclient.NewSyncer(client, local, devCtx.DeviceID, 1)
	result, err := syncer.Pull(context.Background())
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	table := pulledChangesTable{cursor: result.NextCursor, count: len(result.Changes)}
	return cmdutil.PrintOutput(os.Stdout, result, false, "", table)
}

var _ output.TableRenderer = pulledChangesTable{}
