package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/cmd/nsectl/cmdutil"
	"github.com/nous-sync/nse/internal/cli/output"
	"github.com/nous-sync/nse/internal/cli/timeutil"
	"github.com/nous-sync/nse/pkg/conflictstore"
	"github.com/nous-sync/nse/pkg/health"
)

const lastOnlineKey = "health:last_online"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show relay connectivity and capability state",
	Long: `Check relay reachability and report the resulting connectivity
state and the capabilities gated by it.

Examples:
  # Check status of the linked relay
  nsectl status

  # Output as JSON
  nsectl status -o json`,
	RunE: runStatus,
}

// statusView is the JSON/YAML/table projection of a connectivity check.
type statusView struct {
	Server           string `json:"server" yaml:"server"`
	DeviceID         string `json:"device_id" yaml:"device_id"`
	Reachable        bool   `json:"reachable" yaml:"reachable"`
	RelayUptime      string `json:"relay_uptime,omitempty" yaml:"relay_uptime,omitempty"`
	State            string `json:"state" yaml:"state"`
	SinceOnline      string `json:"since_online" yaml:"since_online"`
	CanRead          bool   `json:"can_read" yaml:"can_read"`
	CanWrite         bool   `json:"can_write" yaml:"can_write"`
	CanSearch        bool   `json:"can_search" yaml:"can_search"`
	CanSync          bool   `json:"can_sync" yaml:"can_sync"`
	CanUseLLM        bool   `json:"can_use_llm" yaml:"can_use_llm"`
	PendingConflicts int    `json:"pending_conflicts" yaml:"pending_conflicts"`
	Error            string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, devCtx, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	local, err := cmdutil.OpenLocalStore()
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() { _ = local.Close() }()

	view := statusView{Server: devCtx.ServerURL, DeviceID: devCtx.DeviceID}

	var sinceLastOnline time.Duration
	detail, healthErr := client.HealthDetailed(context.Background())
	if healthErr != nil {
		view.Error = healthErr.Error()
		var lastOnline time.Time
		found, getErr := local.Get(lastOnlineKey, &lastOnline)
		if getErr == nil && found {
			sinceLastOnline = time.Since(lastOnline)
		} else {
			sinceLastOnline = health.DefaultThresholds().MediumOfflineMax + time.Hour
		}
	} else {
		view.Reachable = true
		view.RelayUptime = timeutil.FormatUptime(detail.Uptime)
		now := time.Now()
		sinceLastOnline = 0
		if putErr := local.Put(lastOnlineKey, now); putErr != nil {
			return fmt.Errorf("failed to record last-online timestamp: %w", putErr)
		}
	}

	state := health.Evaluate(sinceLastOnline, !devCtx.IsExpired(), true, health.DefaultThresholds())
	caps := health.CapabilitiesFor(state)

	view.State = string(state)
	view.SinceOnline = sinceLastOnline.Round(time.Second).String()
	view.CanRead = caps.CanRead
	view.CanWrite = caps.CanWrite
	view.CanSearch = caps.CanSearch
	view.CanSync = caps.CanSync
	view.CanUseLLM = caps.CanUseLLM

	badge, badgeErr := conflictstore.New(local).CurrentBadge()
	if badgeErr == nil {
		view.PendingConflicts = badge.Count
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, view)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, view)
	default:
		pairs := [][2]string{
			{"Server", view.Server},
			{"Device ID", view.DeviceID},
			{"Reachable", fmt.Sprintf("%v", view.Reachable)},
			{"Relay uptime", view.RelayUptime},
			{"State", view.State},
			{"Since online", view.SinceOnline},
			{"Can read", fmt.Sprintf("%v", view.CanRead)},
			{"Can write", fmt.Sprintf("%v", view.CanWrite)},
			{"Can search", fmt.Sprintf("%v", view.CanSearch)},
			{"Can sync", fmt.Sprintf("%v", view.CanSync)},
			{"Can use LLM", fmt.Sprintf("%v", view.CanUseLLM)},
			{"Pending conflicts", fmt.Sprintf("%d", view.PendingConflicts)},
		}
		if view.Error != "" {
			pairs = append(pairs, [2]string{"Error", view.Error})
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}
