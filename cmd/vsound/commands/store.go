package commands

import (
	"log/slog"

	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/kv"
)

// openStateStore opens the settings store for a context. A state dir of
// "-" keeps settings in memory for the life of the process.
func openStateStore(cfg *DeviceConfig, context string, logger *slog.Logger) (kv.Store, string, error) {
	if cfg.StateDir == "-" {
		return kv.NewMemory(nil), "memory", nil
	}
	dir := cfg.StateDir
	if dir == "" {
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return nil, "", err
		}
		dir = paths.StateDir(context)
	}
	if err := cli.EnsureDir(dir); err != nil {
		return nil, "", err
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir, Logger: logger})
	if err != nil {
		return nil, "", err
	}
	return store, dir, nil
}
