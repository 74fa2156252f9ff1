package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FilePermissions is the default permission mode for regular files
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories
	DirPermissions = 0755
)

var (
	// ConfigDir is the global configuration directory (~/.restbench)
	ConfigDir string

	// DatabasePath is the SQLite database file for execution history
	DatabasePath string

	// EnvironmentsFile holds workspace environments and collections
	EnvironmentsFile string
)

// Initialize sets up the configuration directory and paths.
// It creates ~/.restbench/ if it doesn't exist.
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	ConfigDir = filepath.Join(homeDir, ".restbench")
	DatabasePath = filepath.Join(ConfigDir, "restbench.db")
	EnvironmentsFile = filepath.Join(ConfigDir, "environments.json")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	// Seed an empty environments file on first run
	if _, err := os.Stat(EnvironmentsFile); os.IsNotExist(err) {
		defaultEnvs := []byte(`{"activeEnvironment":"","environments":[],"collections":[]}`)
		if err := os.WriteFile(EnvironmentsFile, defaultEnvs, FilePermissions); err != nil {
			return fmt.Errorf("failed to create environments file: %w", err)
		}
	}

	return nil
}

// GetEnvironmentsFilePath returns the environments file path, preferring a
// local .environments.json over the global one.
func GetEnvironmentsFilePath() string {
	if _, err := os.Stat(".environments.json"); err == nil {
		return ".environments.json"
	}
	return EnvironmentsFile
}
