// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppName is used for config and state directories.
const AppName = "telnotify"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TELNOTIFY_"

// ConfigDir returns the telnotify config directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName)
}

// StateDir returns the directory holding runtime state shared between
// telnotifyd and the CLI. Uses XDG_STATE_HOME if set, otherwise
// ~/.local/state.
func StateDir() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, AppName)
}

// StatePath returns the path to the shared state file.
func StatePath() string {
	return filepath.Join(StateDir(), "state.json")
}

// JournalPath returns the path to the event journal.
func JournalPath() string {
	return filepath.Join(StateDir(), "events.jsonl")
}

// EnvFilePath returns the path to the optional env override file.
func EnvFilePath() string {
	return filepath.Join(ConfigDir(), "telnotifyd.env")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	path := StateDir()
	if path == "" {
		return errors.New("unable to determine state directory")
	}
	return os.MkdirAll(path, 0755)
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = EnvFilePath()
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// lookupEnv returns the value of EnvPrefix+key, if set and non-empty.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func envBool(key string, current bool) bool {
	value, ok := lookupEnv(key)
	if !ok {
		return current
	}
	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return current
	}
}

func envInt(key string, current int) int {
	value, ok := lookupEnv(key)
	if !ok {
		return current
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return current
	}
	return n
}

func envString(key, current string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return current
}

func envDuration(key string, current Duration) Duration {
	value, ok := lookupEnv(key)
	if !ok {
		return current
	}
	var d Duration
	if err := d.UnmarshalText([]byte(value)); err != nil {
		return current
	}
	return d
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
