package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		content := `
registry:
  url: https://formulas.example.com
  token: file-token
  localDir: /custom/registry
  timeoutSeconds: 15
platforms:
  - claude
  - cursor
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://formulas.example.com", cfg.Registry.URL)
		assert.Equal(t, "file-token", cfg.Registry.Token)
		assert.Equal(t, "/custom/registry", cfg.Registry.LocalDir)
		assert.Equal(t, 15, cfg.Registry.TimeoutSeconds)
		assert.Equal(t, []string{"claude", "cursor"}, cfg.Platforms)
	})

	t.Run("returns empty config for missing file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "nonexistent.yaml")

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Empty(t, cfg.Registry.URL)
		assert.Empty(t, cfg.Registry.Token)
	})

	t.Run("loads from environment variables", func(t *testing.T) {
		t.Setenv("FRM_REGISTRY", "https://env.example.com")
		t.Setenv("FRM_REGISTRY_TOKEN", "env-token")
		t.Setenv("FRM_REGISTRY_DIR", "/env/registry")

		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "empty.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte(""), 0o644))

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.Registry.URL)
		assert.Equal(t, "env-token", cfg.Registry.Token)
		assert.Equal(t, "/env/registry", cfg.Registry.LocalDir)
	})

	t.Run("env vars override file values", func(t *testing.T) {
		t.Setenv("FRM_REGISTRY_TOKEN", "env-token")

		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		content := `
registry:
  url: https://file.example.com
  token: file-token
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://file.example.com", cfg.Registry.URL)
		assert.Equal(t, "env-token", cfg.Registry.Token)
	})

	t.Run("returns error for malformed yaml", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "bad.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("registry: [unclosed"), 0o644))

		loader := NewLoader()
		_, err := loader.Load(configFile)
		assert.Error(t, err)
	})
}

func TestLoadWithDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(""), 0o644))

	loader := NewLoader()
	cfg, err := loader.LoadWithDefaults(configFile)

	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Registry.LocalDir)
	assert.Equal(t, 30, cfg.Registry.TimeoutSeconds)
}

func TestLoaderSet(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	loader := NewLoader()
	loader.Set("registry.url", "https://set.example.com")
	require.NoError(t, loader.WriteConfig(configFile))

	reloaded := NewLoader()
	cfg, err := reloaded.Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "https://set.example.com", cfg.Registry.URL)
}
