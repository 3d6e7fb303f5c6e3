package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
)

func testFormula(name, version string) *formula.Formula {
	return &formula.Formula{
		Name:        name,
		Version:     version,
		Description: "test formula",
		Keywords:    []string{"testing"},
		Files: []formula.File{
			{Path: "rules/style.md", Content: "be terse"},
			{Path: "ROOT.md", Content: "shared context"},
		},
	}
}

func TestLocalSaveFetchRoundTrip(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))

	f, err := reg.Fetch(ctx, "demo", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "demo", f.Name)
	require.Len(t, f.Files, 2)
	assert.Equal(t, "be terse", f.FindFile("rules/style.md").Content)
	assert.Equal(t, "shared context", f.RootBody())
}

func TestLocalVersionsSorted(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "2.0.0", "1.2.0"} {
		require.NoError(t, reg.Save(ctx, testFormula("demo", v)))
	}

	versions, err := reg.Versions(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0.0", "1.2.0", "1.0.0"}, versions)
}

func TestLocalStableVersionImmutable(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))
	err := reg.Save(ctx, testFormula("demo", "1.0.0"))
	assert.ErrorIs(t, err, oerrors.ErrAlreadyExists)

	// Prerelease versions are work in progress and may be replaced.
	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.1.0-wip")))
	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.1.0-wip")))
}

func TestLocalLinkedVersionOverwritable(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))
	require.NoError(t, reg.Link("demo", "1.0.0", "/work/demo"))

	ws, linked := reg.LinkedWorkspace("demo", "1.0.0")
	require.True(t, linked)
	assert.Equal(t, "/work/demo", ws)

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))
}

func TestLocalDelete(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))
	require.NoError(t, reg.Delete(ctx, "demo", "1.0.0"))

	_, err := reg.Versions(ctx, "demo")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)

	err = reg.Delete(ctx, "demo", "1.0.0")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestLocalPrune(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0", "2.0.0-wip"} {
		require.NoError(t, reg.Save(ctx, testFormula("demo", v)))
	}
	require.NoError(t, reg.Link("demo", "2.0.0-wip", "/work/demo"))

	removed, err := reg.Prune(ctx, "demo", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0"}, removed)

	versions, err := reg.Versions(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0.0-wip", "1.2.0", "1.1.0"}, versions)
}

func TestLocalListAndSearch(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))
	require.NoError(t, reg.Save(ctx, testFormula("@acme/tools", "2.0.0")))

	infos, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	hits, err := reg.Search(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "@acme/tools", hits[0].Name)

	// Keyword match.
	hits, err = reg.Search(ctx, "testing")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestLocalHas(t *testing.T) {
	reg := NewLocal(t.TempDir())
	ctx := context.Background()

	ok, err := reg.Has(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reg.Save(ctx, testFormula("demo", "1.0.0")))
	ok, err = reg.Has(ctx, "demo")
	require.NoError(t, err)
	assert.True(t, ok)
}
