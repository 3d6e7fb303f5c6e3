package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for formulary configuration.
const envPrefix = "FRM"

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("registry.url", "FRM_REGISTRY")
	_ = v.BindEnv("registry.token", "FRM_REGISTRY_TOKEN")
	_ = v.BindEnv("registry.localDir", "FRM_REGISTRY_DIR")

	return &Loader{v: v}
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// Environment variables take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return nil, fmt.Errorf("getting config file path: %w", err)
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	l.v.SetConfigFile(expandedPath)
	l.v.SetConfigType("yaml")

	// A missing config file is fine: defaults plus env vars apply.
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads configuration and applies defaults.
func (l *Loader) LoadWithDefaults(configFile string) (*Config, error) {
	cfg, err := l.Load(configFile)
	if err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// Set writes one dotted key into the loaded configuration state.
// Used by `frm configure` before persisting.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// WriteConfig persists the current configuration state to path.
func (l *Loader) WriteConfig(path string) error {
	if path == "" {
		var err error
		path, err = GetConfigFile()
		if err != nil {
			return err
		}
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := EnsureHomeDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return l.v.WriteConfigAs(expanded)
}
