// Package paths provides XDG-compliant path resolution for feed.
//
// Resolution order:
// 1. FEED_HOME (portable root) → $FEED_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/feed
// 3. Platform defaults → ~/.config/feed, ~/.local/state/feed, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "feed"

// base resolves one XDG root: FEED_HOME/<sub>, then $xdgVar, then ~/<fallback>.
func base(sub, xdgVar string, fallback ...string) string {
	if home := os.Getenv("FEED_HOME"); home != "" {
		return filepath.Join(home, sub)
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		parts := append([]string{homeDir}, fallback...)
		return filepath.Join(append(parts, appName)...)
	}
	return ""
}

// ConfigDir returns the feed configuration directory.
// Used for feed.yml or feed.toml.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the feed state directory.
// Used for the preference file and logs.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the feed cache directory.
func CacheDir() string {
	return base("cache", "XDG_CACHE_HOME", ".cache")
}

// StateFile returns the default preference file path.
func StateFile() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "state.yml")
}

// LogFile returns the default log file path.
func LogFile() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs", "feed.log")
}

// EnsureDirs creates all feed directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
