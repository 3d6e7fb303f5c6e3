package config

import (
	"os"
)

// Source indicates where a configuration value came from.
type Source string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag Source = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv Source = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig Source = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault Source = "default"
)

// ResolveRegistryOptions contains options for registry URL resolution.
type ResolveRegistryOptions struct {
	// FlagValue is the --registry flag value (empty if not set).
	FlagValue string
	// ConfigValue is the registry URL from the config file (empty if not set).
	ConfigValue string
}

// ResolveRegistryResult contains the resolved registry URL and its source.
type ResolveRegistryResult struct {
	// Registry is the resolved registry URL. Empty means no remote
	// registry is configured anywhere.
	Registry string
	// Source indicates where the registry came from.
	Source Source
	// Shadowed contains values overridden by higher precedence.
	Shadowed map[Source]string
}

// ResolveRegistry resolves the remote registry URL using precedence:
// (1) --registry flag, (2) FRM_REGISTRY env, (3) config registry.url.
func ResolveRegistry(opts ResolveRegistryOptions) ResolveRegistryResult {
	result := ResolveRegistryResult{
		Shadowed: make(map[Source]string),
	}
	envValue := os.Getenv("FRM_REGISTRY")

	switch {
	case opts.FlagValue != "":
		result.Registry = opts.FlagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		if opts.ConfigValue != "" {
			result.Shadowed[SourceConfig] = opts.ConfigValue
		}
	case envValue != "":
		result.Registry = envValue
		result.Source = SourceEnv
		if opts.ConfigValue != "" {
			result.Shadowed[SourceConfig] = opts.ConfigValue
		}
	case opts.ConfigValue != "":
		result.Registry = opts.ConfigValue
		result.Source = SourceConfig
	}
	return result
}

// ResolveRegistryDir resolves the local registry directory using precedence:
// (1) FRM_REGISTRY_DIR env, (2) config registry.localDir, (3) default.
func ResolveRegistryDir(configValue string) (string, Source, error) {
	if envValue := os.Getenv("FRM_REGISTRY_DIR"); envValue != "" {
		return envValue, SourceEnv, nil
	}
	if configValue != "" {
		expanded, err := ExpandPath(configValue)
		if err != nil {
			return "", SourceConfig, err
		}
		return expanded, SourceConfig, nil
	}

	dir, err := GetRegistryDir()
	if err != nil {
		return "", SourceDefault, err
	}
	return dir, SourceDefault, nil
}
