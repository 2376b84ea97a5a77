package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/kv"
	"github.com/haivivi/vsound/pkg/vsound"
)

var settingsOutput string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect saved card settings",
	Long: `Inspect the format and volume each card saved the last time a guest
changed them. Settings live in the context's state directory.

The card must not be running: the state store is opened exclusively.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(ctx context.Context, store kv.Store, _ string) error {
			all, err := vsound.ListSettings(ctx, store)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				cli.PrintInfo("No saved settings")
				return nil
			}
			return cli.Output(all, cli.OutputOptions{Format: cli.OutputFormat(settingsOutput)})
		})
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show [device]",
	Short: "Show saved settings for a device (default: the context name)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(ctx context.Context, store kv.Store, device string) error {
			if len(args) > 0 {
				device = args[0]
			}
			s, err := vsound.LoadSettings(ctx, store, device)
			if err != nil {
				return err
			}
			return cli.Output(s, cli.OutputOptions{Format: cli.OutputFormat(settingsOutput)})
		})
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset [device]",
	Short: "Forget saved settings for a device (default: the context name)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(ctx context.Context, store kv.Store, device string) error {
			if len(args) > 0 {
				device = args[0]
			}
			if err := vsound.DeleteSettings(ctx, store, device); err != nil {
				return err
			}
			cli.PrintSuccess("Settings for %q reset", device)
			return nil
		})
	},
}

// withSettingsStore opens the current context's state store, calls fn with
// the context name as default device and closes the store.
func withSettingsStore(fn func(ctx context.Context, store kv.Store, device string) error) error {
	cliCtx, err := getContext()
	if err != nil {
		return err
	}
	cfg, err := LoadDeviceConfig(cliCtx)
	if err != nil {
		return err
	}
	if cfg.StateDir == "-" {
		return fmt.Errorf("context %q keeps settings in memory", cliCtx.Name)
	}
	store, _, err := openStateStore(cfg, cliCtx.Name, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(context.Background(), store, cliCtx.Name)
}

func init() {
	settingsCmd.PersistentFlags().StringVarP(&settingsOutput, "output", "o", "yaml", "output format: yaml or json")
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsResetCmd)
}
