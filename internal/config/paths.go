package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Paths contains standard filesystem paths for formulary.
type Paths struct {
	// ConfigFile is the path to the config file (~/.formulary/config.yaml).
	ConfigFile string

	// RegistryDir is the local registry directory (~/.formulary/registry).
	RegistryDir string

	// HomeDir is the formulary home directory (~/.formulary).
	HomeDir string
}

// DefaultPaths returns the default paths for formulary.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	frmHome := filepath.Join(homeDir, ".formulary")

	return &Paths{
		ConfigFile:  filepath.Join(frmHome, "config.yaml"),
		RegistryDir: filepath.Join(frmHome, "registry"),
		HomeDir:     frmHome,
	}, nil
}

// GetConfigFile returns the config file path.
// If FRM_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv("FRM_CONFIG"); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// GetRegistryDir returns the local registry directory path.
// If FRM_REGISTRY_DIR is set, it takes precedence.
func GetRegistryDir() (string, error) {
	if envPath := os.Getenv("FRM_REGISTRY_DIR"); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return paths.RegistryDir, nil
}

// EnsureHomeDir creates the formulary home directory if it doesn't exist.
func EnsureHomeDir() error {
	paths, err := DefaultPaths()
	if err != nil {
		return err
	}
	return os.MkdirAll(paths.HomeDir, 0o755)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
