package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the path to the walletauth config directory (~/.walletauth).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".walletauth"), nil
}

// DefaultPath returns the path to the config file for the given component name,
// e.g. "gateway.yaml". Absolute paths are returned as-is. ~/.walletauth/configs/ is
// preferred over ~/.walletauth/.
func DefaultPath(component string) (string, error) {
	if filepath.IsAbs(component) {
		return component, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	configsPath := filepath.Join(dir, "configs", component)
	if _, err := os.Stat(configsPath); err == nil {
		return configsPath, nil
	}

	legacyPath := filepath.Join(dir, component)
	if _, err := os.Stat(legacyPath); err == nil {
		return legacyPath, nil
	}

	// Return configs path as default (even if it doesn't exist yet) so error messages
	// show the expected location.
	return configsPath, nil
}
