package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
)

func TestInitAndFind(t *testing.T) {
	dir := t.TempDir()

	w, err := Init(dir, "my-project")
	require.NoError(t, err)

	m, err := w.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "my-project", m.Name)
	assert.Equal(t, "0.1.0", m.Version)

	// Find from a nested directory walks up to the root.
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, w.Root, found.Root)
}

func TestInitAlreadyInitialized(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(dir, "demo")
	require.NoError(t, err)

	_, err = Init(dir, "demo")
	assert.ErrorIs(t, err, oerrors.ErrAlreadyExists)
}

func TestInitDefaultsToDirName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-tools")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	w, err := Init(dir, "")
	require.NoError(t, err)

	m, err := w.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "my-tools", m.Name)
}

func TestFindNotInitialized(t *testing.T) {
	_, err := Find(t.TempDir())
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestNestedManifests(t *testing.T) {
	w, err := Init(t.TempDir(), "root")
	require.NoError(t, err)

	require.NoError(t, w.SaveNestedManifest(&formula.Formula{Name: "sub-b", Version: "1.0.0"}))
	require.NoError(t, w.SaveNestedManifest(&formula.Formula{Name: "sub-a", Version: "2.0.0"}))
	require.NoError(t, w.SaveNestedManifest(&formula.Formula{Name: "@acme/sub", Version: "3.0.0"}))

	all, err := w.NestedManifests()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "@acme/sub", all[0].Name)
	assert.Equal(t, "sub-a", all[1].Name)
	assert.Equal(t, "sub-b", all[2].Name)
}

func TestOverrides(t *testing.T) {
	w, err := Init(t.TempDir(), "root")
	require.NoError(t, err)

	overrides, err := w.Overrides()
	require.NoError(t, err)
	assert.Empty(t, overrides)

	require.NoError(t, w.SetOverride("Shared", "2.1.0"))
	require.NoError(t, w.SetOverride("other", "1.0.0"))

	overrides, err = w.Overrides()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shared": "2.1.0", "other": "1.0.0"}, overrides)
}
