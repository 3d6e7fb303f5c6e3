// Package config provides configuration loading and management.
package config

// RegistryConfig contains remote registry settings.
type RegistryConfig struct {
	// URL is the remote registry endpoint.
	// Env: FRM_REGISTRY
	URL string `json:"url,omitempty" mapstructure:"url"`

	// Token is the bearer token for authenticated registry operations.
	// Env: FRM_REGISTRY_TOKEN
	Token string `json:"token,omitempty" mapstructure:"token"`

	// LocalDir is the local registry directory.
	// Env: FRM_REGISTRY_DIR, Default: ~/.formulary/registry
	LocalDir string `json:"localDir,omitempty" mapstructure:"localDir"`

	// TimeoutSeconds bounds each remote request. Default: 30.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" mapstructure:"timeoutSeconds"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: false. Override with --timestamps flag.
	Timestamps *bool `json:"timestamps,omitempty" mapstructure:"timestamps"`
}

// Config represents the frm CLI configuration, loaded from
// ~/.formulary/config.yaml.
type Config struct {
	// Registry contains remote and local registry settings.
	Registry RegistryConfig `json:"registry,omitempty" mapstructure:"registry"`

	// Platforms restricts installs to a default platform subset.
	// Empty means every detected platform.
	Platforms []string `json:"platforms,omitempty" mapstructure:"platforms"`

	// Log contains logging-related settings.
	Log LogConfig `json:"log,omitempty" mapstructure:"log"`
}

// WithDefaults fills unset fields with their defaults.
func (c *Config) WithDefaults() *Config {
	out := *c
	if out.Registry.LocalDir == "" {
		if dir, err := GetRegistryDir(); err == nil {
			out.Registry.LocalDir = dir
		}
	}
	if out.Registry.TimeoutSeconds <= 0 {
		out.Registry.TimeoutSeconds = 30
	}
	return &out
}
