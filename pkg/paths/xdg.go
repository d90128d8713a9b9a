// Package paths provides XDG-compliant path resolution for notify.
//
// Resolution order:
// 1. NOTIFY_HOME (portable root) → $NOTIFY_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/notify
// 3. Platform defaults → ~/.config/notify, ~/.local/state/notify
package paths

import (
	"os"
	"path/filepath"
)

const appName = "notify"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("NOTIFY_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("NOTIFY_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the notify configuration directory.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	// NOTIFY_HOME/config is already private to notify.
	if os.Getenv("NOTIFY_HOME") != "" {
		return base
	}
	return filepath.Join(base, appName)
}

// StateDir returns the notify state directory.
// Used for the journal, logs and the pid file.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	if os.Getenv("NOTIFY_HOME") != "" {
		return base
	}
	return filepath.Join(base, appName)
}

// RuntimeDir returns the notify runtime directory for sockets.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if home := os.Getenv("NOTIFY_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the default event stream socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "notify.sock")
}

// PidFilePath returns the path to the `notify serve` PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "notify.pid")
}

// JournalPath returns the default event journal database.
func JournalPath() string {
	return filepath.Join(StateDir(), "journal.db")
}

// EnsureDirs creates all notify directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
