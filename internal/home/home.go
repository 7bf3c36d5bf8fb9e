// Package home manages the edgelog on-disk layout.
//
// edgelog keeps two kinds of state: operator settings (config dir) and the
// known-hubs trust cache (cache dir). Both live under a single root when
// --home is given.
//
// Layout:
//
//	<config-root>/
//	  config.yaml          (optional CLI defaults)
//	<cache-root>/
//	  known_hubs.json      (TOFU trust cache, authority -> fingerprint)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "edgelog"

// Dir represents the edgelog config and cache directories.
type Dir struct {
	config string
	cache  string
}

// New creates a Dir with an explicit root path used for both config and cache.
func New(root string) Dir {
	return Dir{config: root, cache: root}
}

// Default returns a Dir using the platform-appropriate default locations:
//   - Linux:   ~/.config/edgelog and ~/.cache/edgelog
//   - macOS:   ~/Library/Application Support/edgelog and ~/Library/Caches/edgelog
//   - Windows: %APPDATA%/edgelog and %LocalAppData%/edgelog
func Default() (Dir, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	cacheBase, err := os.UserCacheDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine cache directory: %w", err)
	}
	return Dir{
		config: filepath.Join(configBase, appName),
		cache:  filepath.Join(cacheBase, appName),
	}, nil
}

// Resolve returns New(flagValue) when the --home flag is set, otherwise Default.
func Resolve(flagValue string) (Dir, error) {
	if flagValue != "" {
		return New(flagValue), nil
	}
	return Default()
}

// ConfigDir returns the settings directory.
func (d Dir) ConfigDir() string {
	return d.config
}

// CacheDir returns the cache directory.
func (d Dir) CacheDir() string {
	return d.cache
}

// SettingsPath returns the path to the optional YAML settings file.
func (d Dir) SettingsPath() string {
	return filepath.Join(d.config, "config.yaml")
}

// KnownHubsPath returns the path to the trust cache.
func (d Dir) KnownHubsPath() string {
	return filepath.Join(d.cache, "known_hubs.json")
}
