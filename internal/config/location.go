package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "JDB_CONFIG"

// GetConfigPath returns $JDB_CONFIG if set, else ~/.jdb/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".jdb", "config"), nil
}
