package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates an app's files under ~/.giztoy/<app>.
type Paths struct {
	AppName string
	HomeDir string
}

// NewPaths creates a new Paths instance for the given app
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cli: home directory: %w", err)
	}
	return &Paths{AppName: appName, HomeDir: home}, nil
}

// BaseDir returns the base giztoy directory (~/.giztoy)
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// AppDir returns the app-specific directory (~/.giztoy/<app>)
func (p *Paths) AppDir() string {
	return filepath.Join(p.BaseDir(), p.AppName)
}

// ConfigFile returns the config file path (~/.giztoy/<app>/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// StateDir returns the directory for persistent state of one context
// (~/.giztoy/<app>/state/<context>).
func (p *Paths) StateDir(context string) string {
	return filepath.Join(p.AppDir(), "state", context)
}

// DumpDir returns the directory for PCM dumps (~/.giztoy/<app>/dumps).
func (p *Paths) DumpDir() string {
	return filepath.Join(p.AppDir(), "dumps")
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cli: create %s: %w", dir, err)
	}
	return nil
}
