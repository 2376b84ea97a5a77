package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/vsound/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage vsound configuration.

Configuration is stored in ~/.giztoy/vsound/config.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := loadConfig()
		return err
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage contexts",
	Long:  `Manage vsound contexts, one per virtual card setup.`,
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := globalConfig.ListContexts()
		if len(names) == 0 {
			fmt.Println("No contexts configured.")
			fmt.Println("\nCreate one with:")
			fmt.Println("  vsound config context set lab --listen=:7070 --backend=portaudio")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tLISTEN\tBACKEND")
		for _, name := range names {
			ctx, _ := globalConfig.GetContext(name)
			cfg, err := LoadDeviceConfig(ctx)
			if err != nil {
				fmt.Fprintf(w, "\t%s\t(invalid: %v)\t\n", name, err)
				continue
			}
			current := ""
			if name == globalConfig.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, cfg.Listen, cfg.Backend)
		}
		return w.Flush()
	},
}

var contextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var contextSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a context with the specified settings.

Examples:
  # A card that plays on the default sound device
  vsound config context set desk --backend=portaudio

  # A card that forwards L16 over RTP and dumps every session to S3
  vsound config context set lab --backend=rtp --rtp-addr=10.0.0.5:5004 \
      --dump-s3-bucket=pcm-dumps --dump-s3-prefix=lab/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx, err := globalConfig.GetContext(name)
		if err != nil {
			ctx = &cli.Context{Name: name}
		}
		cfg, err := LoadDeviceConfig(ctx)
		if err != nil {
			return err
		}

		f := cmd.Flags()
		strs := map[string]*string{
			"listen":           &cfg.Listen,
			"backend":          &cfg.Backend,
			"rtp-addr":         &cfg.RTPAddr,
			"state-dir":        &cfg.StateDir,
			"dump-dir":         &cfg.DumpDir,
			"dump-s3-bucket":   &cfg.DumpS3Bucket,
			"dump-s3-prefix":   &cfg.DumpS3Prefix,
			"dump-s3-region":   &cfg.DumpS3Region,
			"dump-s3-endpoint": &cfg.DumpS3Endpoint,
			"metrics-addr":     &cfg.MetricsAddr,
		}
		for flag, dst := range strs {
			if f.Changed(flag) {
				*dst, _ = f.GetString(flag)
			}
		}
		if f.Changed("ring-size") {
			cfg.RingSize, _ = f.GetInt("ring-size")
		}
		if f.Changed("tick-ms") {
			cfg.TickMS, _ = f.GetInt("tick-ms")
		}
		if f.Changed("rtp-packet") {
			cfg.RTPPacket, _ = f.GetDuration("rtp-packet")
		}
		if f.Changed("description") {
			ctx.Description, _ = f.GetString("description")
		}

		SaveDeviceConfig(ctx, cfg)
		if err := globalConfig.AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q saved", name)
		return nil
	},
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var contextShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show context details",
	Long:  `Show details of a context. If no name is provided, shows the current context.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := globalConfig.CurrentContext
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no current context set. Use 'vsound config context use <name>' to set one")
		}
		ctx, err := globalConfig.GetContext(name)
		if err != nil {
			return err
		}
		cfg, err := LoadDeviceConfig(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Context: %s", name)
		if name == globalConfig.CurrentContext {
			fmt.Print(" (current)")
		}
		fmt.Println()
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("Description:  %s\n", valueOrNotSet(ctx.Description))
		fmt.Printf("Listen:       %s\n", cfg.Listen)
		fmt.Printf("Backend:      %s\n", cfg.Backend)
		if cfg.Backend == "rtp" {
			fmt.Printf("RTP addr:     %s (%s packets)\n", cfg.RTPAddr, cfg.RTPPacket)
		}
		fmt.Printf("Ring size:    %s\n", cli.FormatBytes(int64(cfg.RingSize)))
		fmt.Printf("Tick:         %dms\n", cfg.TickMS)
		fmt.Printf("State dir:    %s\n", valueOrNotSet(cfg.StateDir))
		fmt.Printf("Dump dir:     %s\n", valueOrNotSet(cfg.DumpDir))
		fmt.Printf("Dump S3:      %s\n", valueOrNotSet(cfg.DumpS3Bucket))
		fmt.Printf("Metrics:      %s\n", valueOrNotSet(cfg.MetricsAddr))
		fmt.Println()
		fmt.Printf("Config file: %s\n", globalConfig.Path())
		return nil
	},
}

var contextCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		if globalConfig.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(globalConfig.CurrentContext)
		return nil
	},
}

func init() {
	configCmd.AddCommand(contextCmd)

	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextUseCmd)
	contextCmd.AddCommand(contextSetCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextCurrentCmd)

	f := contextSetCmd.Flags()
	f.String("description", "", "free-form description")
	f.String("listen", "", "websocket listen address")
	f.String("backend", "", "host backend: portaudio, rtp or discard")
	f.String("rtp-addr", "", "RTP destination host:port")
	f.Duration("rtp-packet", 5*time.Millisecond, "RTP packet duration")
	f.Int("ring-size", 0, "playback ring size in bytes")
	f.Int("tick-ms", 0, "pump period in milliseconds")
	f.String("state-dir", "", `settings directory ("-" keeps settings in memory)`)
	f.String("dump-dir", "", "local directory for PCM dumps")
	f.String("dump-s3-bucket", "", "S3 bucket for PCM dumps")
	f.String("dump-s3-prefix", "", "S3 key prefix for PCM dumps")
	f.String("dump-s3-region", "", "S3 region")
	f.String("dump-s3-endpoint", "", "S3-compatible endpoint URL")
	f.String("metrics-addr", "", "separate listen address for /metrics")
}
