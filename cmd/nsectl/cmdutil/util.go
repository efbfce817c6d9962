// Package cmdutil provides shared utilities for nsectl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nous-sync/nse/internal/cli/credentials"
	"github.com/nous-sync/nse/internal/cli/output"
	"github.com/nous-sync/nse/internal/cli/prompt"
	"github.com/nous-sync/nse/pkg/localstore"
	"github.com/nous-sync/nse/pkg/syncclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Output    string
	NoColor   bool
	Verbose   bool
}

// GetClient returns a syncclient.Client configured from the current
// context, preferring the --server flag over a stored context.
func GetClient() (*syncclient.Client, *credentials.Context, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, nil, credentials.ErrNotLoggedIn
	}

	serverURL := ctx.ServerURL
	if Flags.ServerURL != "" {
		serverURL = Flags.ServerURL
	}
	if serverURL == "" {
		return nil, nil, fmt.Errorf("no server configured - run 'nsectl link' first")
	}
	if ctx.AccessToken == "" {
		return nil, nil, credentials.ErrNotLoggedIn
	}

	return syncclient.New(serverURL).WithToken(ctx.AccessToken), ctx, nil
}

// LocalStoreDir returns the directory nsectl's on-device Badger store
// lives under, a sibling of credentials' own config.json.
func LocalStoreDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, credentials.DefaultConfigDir, "local"), nil
}

// OpenLocalStore opens (creating if needed) nsectl's on-device store.
func OpenLocalStore() (*localstore.Store, error) {
	dir, err := LocalStoreDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, credentials.DirPermissions); err != nil {
		return nil, fmt.Errorf("cannot create local store directory: %w", err)
	}
	return localstore.Open(dir)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise
// uses tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// HandleAbort checks if err is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns err.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
