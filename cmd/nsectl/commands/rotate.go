package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/cmd/nsectl/cmdutil"
	"github.com/nous-sync/nse/internal/cli/output"
	"github.com/nous-sync/nse/pkg/keyring"
)

const rotationStateKey = "rotation:state"

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Inspect key-rotation progress",
}

var rotateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show this device's last-known key-rotation phase",
	Long: `Read the key-rotation state this device persisted locally.

A rotation spans several devices independently re-encrypting their own
node data under a new key version; this only reports what this one
device has recorded about its own progress, not the namespace's overall
rotation status.`,
	RunE: runRotateStatus,
}

func init() {
	rotateCmd.AddCommand(rotateStatusCmd)
}

func runRotateStatus(cmd *cobra.Command, args []string) error {
	local, err := cmdutil.OpenLocalStore()
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() { _ = local.Close() }()

	var state keyring.State
	found, err := local.Get(rotationStateKey, &state)
	if err != nil {
		return fmt.Errorf("failed to read rotation state: %w", err)
	}
	if !found {
		fmt.Println("No key rotation has been recorded on this device.")
		return nil
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, state)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, state)
	default:
		pairs := [][2]string{
			{"Key version", fmt.Sprintf("%d", state.KeyVersion)},
			{"Phase", string(state.Phase)},
			{"Cursor", state.Cursor},
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}
