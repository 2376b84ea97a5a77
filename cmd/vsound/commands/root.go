package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/vsound"
)

const appName = "vsound"

// defaultContext is used when no context is configured.
const defaultContext = "default"

var (
	cfgFile      string
	contextName  string
	verbose      bool
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "vsound",
	Short: "Virtual sound card",
	Long: `vsound is a virtual sound card. A guest connects over a websocket,
negotiates a PCM format and volume with small control messages and streams
audio, which vsound plays on a host backend (PortAudio, RTP or discard).

Configuration is stored in ~/.giztoy/vsound/ and supports multiple contexts,
so one machine can run several cards with different settings.`,
	SilenceUsage: true,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		cli.PrintError("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.giztoy/vsound/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default is current context)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(guestCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(configCmd)
}

var configErr error

func initConfig() {
	if cfgFile != "" {
		globalConfig, configErr = cli.LoadConfigWithPath(appName, cfgFile)
		return
	}
	globalConfig = cli.LoadConfigIfExists(appName)
}

// loadConfig returns the config, creating it on first use.
func loadConfig() (*cli.Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	if configErr != nil {
		return nil, fmt.Errorf("%s config: %w", appName, configErr)
	}
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("%s config: %w", appName, err)
	}
	return globalConfig, nil
}

// getContext returns the context to use. Without a --context flag and
// without a current context, an empty context named "default" is used so
// vsound runs with built-in defaults.
func getContext() (*cli.Context, error) {
	if globalConfig == nil && configErr == nil && contextName == "" {
		return &cli.Context{Name: defaultContext}, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if contextName == "" && cfg.CurrentContext == "" {
		return &cli.Context{Name: defaultContext}, nil
	}
	return cfg.ResolveContext(contextName)
}

// DeviceConfig holds vsound settings extracted from Context.Extra.
type DeviceConfig struct {
	Listen         string
	Backend        string
	RTPAddr        string
	RTPPacket      time.Duration
	RingSize       int
	TickMS         int
	StateDir       string
	DumpDir        string
	DumpS3Bucket   string
	DumpS3Prefix   string
	DumpS3Region   string
	DumpS3Endpoint string
	MetricsAddr    string
}

// DefaultDeviceConfig returns default configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Listen:    ":7070",
		Backend:   "portaudio",
		RTPAddr:   "127.0.0.1:5004",
		RTPPacket: 5 * time.Millisecond,
		RingSize:  vsound.DefaultRingSize,
		TickMS:    int(vsound.DefaultTickPeriod / time.Millisecond),
	}
}

// LoadDeviceConfig loads vsound configuration from a context.
func LoadDeviceConfig(ctx *cli.Context) (*DeviceConfig, error) {
	cfg := DefaultDeviceConfig()
	if ctx == nil {
		return cfg, nil
	}
	strs := map[string]*string{
		"listen":           &cfg.Listen,
		"backend":          &cfg.Backend,
		"rtp_addr":         &cfg.RTPAddr,
		"state_dir":        &cfg.StateDir,
		"dump_dir":         &cfg.DumpDir,
		"dump_s3_bucket":   &cfg.DumpS3Bucket,
		"dump_s3_prefix":   &cfg.DumpS3Prefix,
		"dump_s3_region":   &cfg.DumpS3Region,
		"dump_s3_endpoint": &cfg.DumpS3Endpoint,
		"metrics_addr":     &cfg.MetricsAddr,
	}
	for key, dst := range strs {
		if v := ctx.GetExtra(key); v != "" {
			*dst = v
		}
	}

	var err error
	if cfg.RingSize, err = ctx.ExtraInt("ring_size", cfg.RingSize); err != nil {
		return nil, err
	}
	if cfg.TickMS, err = ctx.ExtraInt("tick_ms", cfg.TickMS); err != nil {
		return nil, err
	}
	if cfg.RTPPacket, err = ctx.ExtraDuration("rtp_packet", cfg.RTPPacket); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveDeviceConfig saves vsound configuration to a context.
func SaveDeviceConfig(ctx *cli.Context, cfg *DeviceConfig) {
	ctx.SetExtra("listen", cfg.Listen)
	ctx.SetExtra("backend", cfg.Backend)
	ctx.SetExtra("rtp_addr", cfg.RTPAddr)
	ctx.SetExtra("rtp_packet", cfg.RTPPacket.String())
	ctx.SetExtra("ring_size", fmt.Sprintf("%d", cfg.RingSize))
	ctx.SetExtra("tick_ms", fmt.Sprintf("%d", cfg.TickMS))
	ctx.SetExtra("state_dir", cfg.StateDir)
	ctx.SetExtra("dump_dir", cfg.DumpDir)
	ctx.SetExtra("dump_s3_bucket", cfg.DumpS3Bucket)
	ctx.SetExtra("dump_s3_prefix", cfg.DumpS3Prefix)
	ctx.SetExtra("dump_s3_region", cfg.DumpS3Region)
	ctx.SetExtra("dump_s3_endpoint", cfg.DumpS3Endpoint)
	ctx.SetExtra("metrics_addr", cfg.MetricsAddr)
}

// newLogger installs a text slog handler on stderr (or on w when set) and
// returns it.
func newLogger(w *cli.LogWriter) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var h slog.Handler
	if w != nil {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
