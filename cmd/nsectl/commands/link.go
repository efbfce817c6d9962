package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/cmd/nsectl/cmdutil"
	"github.com/nous-sync/nse/internal/cli/credentials"
	"github.com/nous-sync/nse/internal/cli/prompt"
	"github.com/nous-sync/nse/pkg/keyring"
	"github.com/nous-sync/nse/pkg/models"
	"github.com/nous-sync/nse/pkg/syncclient"
)

var (
	linkServer      string
	linkDisplayName string
	linkPlatform    string
	linkSchema      int
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Register this device with a relay",
	Long: `Register this device with a relay and store the issued credentials.

On first link, a recovery mnemonic is generated and printed once. Write it
down: it is the only way to recover Private-tier data if this device's
local key material is lost.

Examples:
  # First link to a relay
  nsectl link --server https://relay.example.com --namespace home

  # Re-link with an explicit display name
  nsectl link --server https://relay.example.com --namespace home --name "laptop"`,
	RunE: runLink,
}

var linkNamespace string

func init() {
	linkCmd.Flags().StringVar(&linkServer, "server", "", "Relay server URL (required)")
	linkCmd.Flags().StringVar(&linkNamespace, "namespace", "", "Namespace to join (required)")
	linkCmd.Flags().StringVar(&linkDisplayName, "name", "", "Display name for this device (prompted for if omitted)")
	linkCmd.Flags().StringVar(&linkPlatform, "platform", "", "Device platform: ios, android, mac, win, web")
	linkCmd.Flags().IntVar(&linkSchema, "schema-version", 1, "Schema version this device speaks")
	_ = linkCmd.MarkFlagRequired("server")
	_ = linkCmd.MarkFlagRequired("namespace")
}

func runLink(cmd *cobra.Command, args []string) error {
	parsedURL, err := url.Parse(linkServer)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		parsedURL.Scheme = "https"
		linkServer = parsedURL.String()
	}

	displayName := linkDisplayName
	if displayName == "" {
		displayName, err = prompt.InputRequired("Device name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	platform := models.Platform(linkPlatform)
	if platform == "" {
		platform = detectPlatform()
	}

	device := models.Device{
		DeviceID:      models.NewID().String(),
		Namespace:     linkNamespace,
		Platform:      platform,
		DisplayName:   displayName,
		SchemaVersion: linkSchema,
	}

	client := syncclient.New(linkServer)
	fmt.Printf("Registering %q with %s (namespace %q)...\n", displayName, linkServer, linkNamespace)
	token, expiresAt, err := client.RegisterDevice(context.Background(), device)
	if err != nil {
		return fmt.Errorf("device registration failed: %w", err)
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	contextName := credentials.GenerateContextName(linkServer)
	ctx := &credentials.Context{
		ServerURL:   linkServer,
		DeviceID:    device.DeviceID,
		Username:    displayName,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}
	if err := store.SetContext(contextName, ctx); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := store.UseContext(contextName); err != nil {
		return fmt.Errorf("failed to set current context: %w", err)
	}

	if err := maybeShowRecoveryMnemonic(); err != nil {
		return err
	}

	fmt.Printf("Linked as device %s\n", device.DeviceID)
	fmt.Printf("Context: %s\n", contextName)
	fmt.Printf("Credentials saved to: %s\n", store.ConfigPath())
	return nil
}

// maybeShowRecoveryMnemonic generates and displays a 24-word recovery
// phrase the first time this device links, storing nothing but a marker
// in the local store so subsequent links don't regenerate it.
func maybeShowRecoveryMnemonic() error {
	local, err := cmdutil.OpenLocalStore()
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() { _ = local.Close() }()

	const shownKey = "recovery:shown"
	var alreadyShown bool
	found, err := local.Get(shownKey, &alreadyShown)
	if err != nil {
		return fmt.Errorf("failed to read local store: %w", err)
	}
	if found && alreadyShown {
		return nil
	}

	words, _, err := keyring.GenerateMnemonic(256)
	if err != nil {
		return fmt.Errorf("failed to generate recovery phrase: %w", err)
	}

	fmt.Println()
	fmt.Println("Recovery phrase (write this down, it will not be shown again):")
	fmt.Println()
	for i, w := range words {
		fmt.Printf("%2d. %s\n", i+1, w)
	}
	fmt.Println()

	if err := local.Put(shownKey, true); err != nil {
		return fmt.Errorf("failed to record recovery phrase state: %w", err)
	}
	return nil
}

// detectPlatform falls back to the "web" platform tag for a CLI/headless
// device; there is no terminal-native entry in the platform enum.
func detectPlatform() models.Platform {
	return models.PlatformWeb
}
