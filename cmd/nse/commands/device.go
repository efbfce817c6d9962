package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/internal/cli/output"
	"github.com/nous-sync/nse/pkg/models"
	"github.com/nous-sync/nse/pkg/relaystore"
)

var deviceListNamespace string

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage registered devices",
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices registered in a namespace",
	RunE:  runDeviceList,
}

var deviceRevokeCmd = &cobra.Command{
	Use:   "revoke <device-id>",
	Short: "Revoke a device, invalidating its ability to sync",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceRevoke,
}

func init() {
	deviceListCmd.Flags().StringVar(&deviceListNamespace, "namespace", "", "Namespace to list (required)")
	_ = deviceListCmd.MarkFlagRequired("namespace")

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRevokeCmd)
}

type deviceTable []*models.Device

func (d deviceTable) Headers() []string {
	return []string{"Device ID", "Namespace", "Platform", "Schema", "Last Active"}
}

func (d deviceTable) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, dev := range d {
		rows = append(rows, []string{
			dev.DeviceID,
			dev.Namespace,
			string(dev.Platform),
			fmt.Sprintf("%d", dev.SchemaVersion),
			dev.LastActiveAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return rows
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := relaystore.New(&cfg.Relay.Database)
	if err != nil {
		return err
	}

	devices, err := store.ListDevices(context.Background(), deviceListNamespace)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Println("No devices registered in this namespace.")
		return nil
	}
	return output.PrintTable(os.Stdout, deviceTable(devices))
}

func runDeviceRevoke(cmd *cobra.Command, args []string) error {
	deviceID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := relaystore.New(&cfg.Relay.Database)
	if err != nil {
		return err
	}

	if err := store.RevokeDevice(context.Background(), deviceID); err != nil {
		return fmt.Errorf("failed to revoke device %s: %w", deviceID, err)
	}
	fmt.Printf("Device %s revoked\n", deviceID)
	return nil
}
