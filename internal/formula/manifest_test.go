package formula

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/formulary/cli/internal/errors"
)

func TestLoadManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)

	in := &Formula{
		Name:        "demo",
		Version:     "1.2.0",
		Description: "demo formula",
		Dependencies: []Dependency{
			{Name: "base", VersionRange: "^1.0.0"},
		},
		Files: []File{{Path: "rules/style.md", Content: "x"}},
	}
	require.NoError(t, SaveManifest(path, in))

	out, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", out.Name)
	assert.Equal(t, "1.2.0", out.Version)
	require.Len(t, out.Dependencies, 1)
	assert.Equal(t, "^1.0.0", out.Dependencies[0].VersionRange)

	// Payloads never travel inside the manifest.
	assert.Empty(t, out.Files)
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), ManifestName))
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestParseManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "invalid yaml",
			yaml: "name: [unterminated",
			want: oerrors.ErrInvalidInput,
		},
		{
			name: "missing name",
			yaml: "version: 1.0.0\n",
			want: oerrors.ErrInvalidInput,
		},
		{
			name: "bad version",
			yaml: "name: demo\nversion: not-semver\n",
			want: oerrors.ErrInvalidInput,
		},
		{
			name: "bad dependency range",
			yaml: "name: demo\nversion: 1.0.0\ndependencies:\n  - name: base\n    version: \"^^1\"\n",
			want: oerrors.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseManifestNormalizesName(t *testing.T) {
	f, err := ParseManifest([]byte("name: My-Formula\nversion: 1.0.0\n"))
	require.NoError(t, err)
	assert.Equal(t, "my-formula", f.Name)
}

func TestSaveManifestCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", ManifestName)

	require.NoError(t, SaveManifest(path, &Formula{Name: "demo", Version: "1.0.0"}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
