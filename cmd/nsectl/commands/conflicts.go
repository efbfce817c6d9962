package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/cmd/nsectl/cmdutil"
	"github.com/nous-sync/nse/pkg/models"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Inspect unresolved conflicts",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unresolved conflicts visible to this device's namespace",
	RunE:  runConflictsList,
}

var conflictsShowCmd = &cobra.Command{
	Use:   "show <conflict-id>",
	Short: "Show the field-level detail of one unresolved conflict",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictsShow,
}

func init() {
	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsShowCmd)
}

type conflictTable []*models.UnresolvedConflict

func (t conflictTable) Headers() []string {
	return []string{"ID", "Node ID", "Namespace", "Fields", "Expires"}
}

func (t conflictTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{
			c.ID.String(),
			c.NodeID.String(),
			c.Namespace,
			fmt.Sprintf("%d", len(c.Conflicts)),
			c.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return rows
}

func runConflictsList(cmd *cobra.Command, args []string) error {
	client, _, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	conflicts, err := client.ListConflicts(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, conflicts, len(conflicts) == 0, "No unresolved conflicts.", conflictTable(conflicts))
}

func runConflictsShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	client, _, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	conflicts, err := client.ListConflicts(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	for _, c := range conflicts {
		if c.ID.String() == id {
			return cmdutil.PrintOutput(os.Stdout, c, false, "", conflictDetailTable{c})
		}
	}
	return fmt.Errorf("conflict %s not found (it may have already expired or been resolved)", id)
}

type conflictDetailTable struct {
	c *models.UnresolvedConflict
}

func (t conflictDetailTable) Headers() []string {
	return []string{"Field", "Local Value", "Remote Value"}
}

func (t conflictDetailTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.c.Conflicts))
	for _, f := range t.c.Conflicts {
		rows = append(rows, []string{
			f.Field,
			fmt.Sprintf("%v", f.LocalValue),
			fmt.Sprintf("%v", f.RemoteValue),
		})
	}
	return rows
}
