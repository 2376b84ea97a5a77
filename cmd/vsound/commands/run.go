package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/kv"
	"github.com/haivivi/vsound/pkg/vsound"
)

var (
	runListen      string
	runBackend     string
	runRTPAddr     string
	runRingSize    int
	runTickMS      int
	runStateDir    string
	runMetricsAddr string
	runDump        bool
	runStatus      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a virtual sound card",
	Long: `Run a virtual sound card and wait for a guest.

The guest connects with a websocket to the listen address. Audio is played
on the selected backend:

  portaudio  the default output device (cgo builds only)
  rtp        RTP L16 to --rtp-addr
  discard    nowhere; useful for testing guests

The negotiated format and volume are saved per context and restored on the
next run. Prometheus metrics are served on /metrics.

Examples:
  vsound run
  vsound run --backend=rtp --rtp-addr=10.0.0.5:5004 --dump
  vsound -c lab run --status`,
	RunE: runDevice,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runListen, "listen", "", "websocket listen address (overrides context)")
	f.StringVar(&runBackend, "backend", "", "host backend: portaudio, rtp or discard (overrides context)")
	f.StringVar(&runRTPAddr, "rtp-addr", "", "RTP destination host:port (overrides context)")
	f.IntVar(&runRingSize, "ring-size", 0, "playback ring size in bytes (overrides context)")
	f.IntVar(&runTickMS, "tick-ms", 0, "pump period in milliseconds (overrides context)")
	f.StringVar(&runStateDir, "state-dir", "", `settings directory, "-" for memory (overrides context)`)
	f.StringVar(&runMetricsAddr, "metrics-addr", "", "serve /metrics on a separate address")
	f.BoolVar(&runDump, "dump", false, "mirror played PCM to the dump store")
	f.BoolVar(&runStatus, "status", false, "show a live status screen instead of log output")
}

func runDevice(cmd *cobra.Command, args []string) error {
	cliCtx, err := getContext()
	if err != nil {
		return err
	}
	cfg, err := LoadDeviceConfig(cliCtx)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("listen") {
		cfg.Listen = runListen
	}
	if f.Changed("backend") {
		cfg.Backend = runBackend
	}
	if f.Changed("rtp-addr") {
		cfg.RTPAddr = runRTPAddr
	}
	if f.Changed("ring-size") {
		cfg.RingSize = runRingSize
	}
	if f.Changed("tick-ms") {
		cfg.TickMS = runTickMS
	}
	if f.Changed("state-dir") {
		cfg.StateDir = runStateDir
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = runMetricsAddr
	}

	var logs *cli.LogWriter
	if runStatus {
		logs = cli.NewLogWriter(200)
	}
	logger := newLogger(logs).With("device", cliCtx.Name)
	vlog := vsound.SlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, stateDir, err := openStateStore(cfg, cliCtx.Name, logger)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	devCfg := vsound.Config{
		ID:       cliCtx.Name,
		RingSize: cfg.RingSize,
		Logger:   vlog,
	}
	saved, err := vsound.LoadSettings(ctx, store, cliCtx.Name)
	switch {
	case err == nil:
		devCfg.Format = saved.Format
		devCfg.Volume = &saved.Volume
		logger.Info("restored settings", "format", saved.Format, "updated_at", saved.UpdatedAt)
	case errors.Is(err, kv.ErrNotFound):
	default:
		return err
	}
	persister := vsound.NewPersister(store, cliCtx.Name, vlog)
	devCfg.OnChange = persister.Notify

	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		return fmt.Errorf("open backend %s: %w", cfg.Backend, err)
	}
	defer closeBackend()

	dumpTo := ""
	if runDump {
		fs, where, err := openDumpStore(cfg)
		if err != nil {
			return fmt.Errorf("open dump store: %w", err)
		}
		tap, stopTap := withTap(ctx, backend, fs, cliCtx.Name, logger)
		defer stopTap()
		backend = tap
		dumpTo = where + "/" + tap.Path()
	}

	dev, err := vsound.NewDevice(backend, devCfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		vsound.NewCollector(dev),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	wss := vsound.NewWSServer(dev, vsound.WSOptions{Logger: vlog})
	mux := http.NewServeMux()
	mux.Handle("/", wss)
	servers := []*http.Server{{Addr: cfg.Listen, Handler: mux}}
	if cfg.MetricsAddr != "" {
		mm := http.NewServeMux()
		mm.Handle("/metrics", metrics)
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mm})
	} else {
		mux.Handle("/metrics", metrics)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				cancel(fmt.Errorf("serve %s: %w", srv.Addr, err))
			}
		}()
	}
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		period := time.Duration(cfg.TickMS) * time.Millisecond
		if err := vsound.NewPump(dev, period, vlog).Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			cancel(err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		persister.Run(runCtx)
	}()

	logger.Info("vsound started",
		"backend", cfg.Backend,
		"state", stateDir,
		"ring", cli.FormatBytes(int64(dev.Stats().RingSize)),
		"dump", dumpTo,
	)

	if runStatus {
		go showStatus(runCtx, dev, cfg, logs)
	}

	<-runCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "addr", srv.Addr, "error", err)
		}
	}
	wss.Close()
	// Tick must not run once the voices are closed.
	<-pumpDone
	dev.Close()
	wg.Wait()

	if err := context.Cause(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
