package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/hostaudio"
	"github.com/haivivi/vsound/pkg/storage"
)

// openBackend opens the host backend named by cfg.Backend. The returned
// close func is never nil.
func openBackend(cfg *DeviceConfig, logger *slog.Logger) (hostaudio.Backend, func() error, error) {
	switch cfg.Backend {
	case "discard":
		return &hostaudio.Discard{}, func() error { return nil }, nil
	case "rtp":
		b, err := hostaudio.DialRTP(cfg.RTPAddr, hostaudio.RTPOptions{
			PacketDuration: cfg.RTPPacket,
			Logger:         logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case "portaudio", "":
		return openPortAudio(time.Duration(cfg.TickMS)*time.Millisecond, logger)
	}
	return nil, nil, fmt.Errorf("unknown backend %q (want portaudio, rtp or discard)", cfg.Backend)
}

// openDumpStore returns the store PCM dumps go to: S3 when a bucket is
// configured, otherwise a local directory.
func openDumpStore(cfg *DeviceConfig) (storage.FileStore, string, error) {
	if cfg.DumpS3Bucket != "" {
		client := storage.NewS3Client(storage.S3Config{
			Region:    cfg.DumpS3Region,
			Endpoint:  cfg.DumpS3Endpoint,
			PathStyle: cfg.DumpS3Endpoint != "",
		})
		where := "s3://" + cfg.DumpS3Bucket + "/" + cfg.DumpS3Prefix
		return storage.NewS3(client, cfg.DumpS3Bucket, cfg.DumpS3Prefix), where, nil
	}
	dir := cfg.DumpDir
	if dir == "" {
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return nil, "", err
		}
		dir = paths.DumpDir()
	}
	local, err := storage.NewLocal(dir)
	if err != nil {
		return nil, "", err
	}
	return local, local.Root(), nil
}

// withTap wraps backend in a Tap that mirrors playback into store and starts
// writing. The returned func stops the tap and waits for the dump to close.
func withTap(ctx context.Context, backend hostaudio.Backend, store storage.FileStore, device string, logger *slog.Logger) (*hostaudio.Tap, func()) {
	tap := hostaudio.NewTap(backend, store, hostaudio.TapOptions{
		Path:   fmt.Sprintf("%s-%s.pcm", device, time.Now().UTC().Format("20060102T150405Z")),
		Logger: logger,
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tap.Run(context.WithoutCancel(ctx))
	}()
	return tap, func() {
		tap.Close()
		<-done
	}
}
