package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/registry"
	"github.com/formulary/cli/internal/semver"
)

// fakeRegistry serves formulas from memory.
type fakeRegistry struct {
	formulas map[string][]*formula.Formula
}

var _ registry.Registry = (*fakeRegistry)(nil)

func newFakeRegistry(formulas ...*formula.Formula) *fakeRegistry {
	r := &fakeRegistry{formulas: make(map[string][]*formula.Formula)}
	for _, f := range formulas {
		r.formulas[f.Name] = append(r.formulas[f.Name], f)
	}
	return r
}

func (r *fakeRegistry) Versions(_ context.Context, name string) ([]string, error) {
	all, ok := r.formulas[name]
	if !ok {
		return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %q", name))
	}
	versions := make([]string, len(all))
	for i, f := range all {
		versions[i] = f.Version
	}
	return semver.Sort(versions), nil
}

func (r *fakeRegistry) Fetch(_ context.Context, name, version string) (*formula.Formula, error) {
	for _, f := range r.formulas[name] {
		if f.Version == version {
			return f, nil
		}
	}
	return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %s@%s", name, version))
}

func (r *fakeRegistry) Has(_ context.Context, name string) (bool, error) {
	_, ok := r.formulas[name]
	return ok, nil
}

func (r *fakeRegistry) Search(_ context.Context, query string) ([]registry.Info, error) {
	var out []registry.Info
	for name, all := range r.formulas {
		if strings.Contains(name, query) {
			out = append(out, registry.Info{Name: name, Version: all[0].Version})
		}
	}
	return out, nil
}

func f(name, version string, deps ...formula.Dependency) *formula.Formula {
	return &formula.Formula{Name: name, Version: version, Dependencies: deps}
}

func dep(name, rng string) formula.Dependency {
	return formula.Dependency{Name: name, VersionRange: rng}
}

func TestResolveCaretPicksHighestMatching(t *testing.T) {
	reg := newFakeRegistry(
		f("formula-a", "1.0.0"),
		f("formula-a", "1.2.0"),
		f("formula-a", "2.0.0"),
	)
	root := f("root", "1.0.0", dep("formula-a", "^1.0.0"))

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)
	require.Len(t, result.Formulas, 1)
	assert.Equal(t, "formula-a@1.2.0", result.Formulas[0].Ref())
	assert.Empty(t, result.Missing)
}

func TestResolveTransitiveOrder(t *testing.T) {
	reg := newFakeRegistry(
		f("app", "1.0.0", dep("lib", "^1.0.0")),
		f("lib", "1.1.0", dep("base", "*")),
		f("base", "0.3.0"),
	)
	root := f("root", "1.0.0", dep("app", "1.0.0"))

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"base@0.3.0", "lib@1.1.0", "app@1.0.0"}, result.Refs())
}

func TestResolveReconvergentGraphReusesPin(t *testing.T) {
	// a and b both depend on shared; compatible ranges reuse one pin.
	reg := newFakeRegistry(
		f("a", "1.0.0", dep("shared", "^1.0.0")),
		f("b", "1.0.0", dep("shared", "^1.1.0")),
		f("shared", "1.0.0"),
		f("shared", "1.2.0"),
	)
	root := f("root", "1.0.0", dep("a", "*"), dep("b", "*"))

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)

	var sharedCount int
	for _, rf := range result.Formulas {
		if rf.Name == "shared" {
			sharedCount++
			assert.Equal(t, "1.2.0", rf.Version)
		}
	}
	assert.Equal(t, 1, sharedCount)
}

func TestResolveRepinsOnTighterConstraint(t *testing.T) {
	// a pins shared@2.1.0 via *, then b demands ^1.0.0: re-pin to 1.5.0.
	reg := newFakeRegistry(
		f("a", "1.0.0", dep("shared", "*")),
		f("b", "1.0.0", dep("shared", "^1.0.0")),
		f("shared", "1.5.0"),
		f("shared", "2.1.0"),
	)
	root := f("root", "1.0.0", dep("a", "*"), dep("b", "*"))

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)

	for _, rf := range result.Formulas {
		if rf.Name == "shared" {
			assert.Equal(t, "1.5.0", rf.Version)
		}
	}
}

func TestResolveVersionConflict(t *testing.T) {
	reg := newFakeRegistry(
		f("a", "1.0.0", dep("shared", "^1.0.0")),
		f("b", "1.0.0", dep("shared", "^2.0.0")),
		f("shared", "1.5.0"),
		f("shared", "2.1.0"),
	)
	root := f("root", "1.0.0", dep("a", "*"), dep("b", "*"))

	_, err := New(reg).Resolve(context.Background(), root, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrVersionConflict)

	var conflict *oerrors.VersionConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "shared", conflict.FormulaName)
	assert.ElementsMatch(t, []string{"^1.0.0", "^2.0.0"}, conflict.Ranges)
	assert.ElementsMatch(t, []string{"a", "b"}, conflict.Parents)
	assert.ElementsMatch(t, []string{"1.5.0", "2.1.0"}, conflict.AvailableVersions)
}

func TestResolveOverrideBypassesConflict(t *testing.T) {
	reg := newFakeRegistry(
		f("a", "1.0.0", dep("shared", "^1.0.0")),
		f("b", "1.0.0", dep("shared", "^2.0.0")),
		f("shared", "1.5.0"),
		f("shared", "2.1.0"),
	)
	root := f("root", "1.0.0", dep("a", "*"), dep("b", "*"))

	result, err := New(reg).Resolve(context.Background(), root, Options{
		Overrides: map[string]string{"shared": "2.1.0"},
	})
	require.NoError(t, err)

	var shared string
	for _, rf := range result.Formulas {
		if rf.Name == "shared" {
			shared = rf.Version
		}
	}
	assert.Equal(t, "2.1.0", shared)
}

func TestResolveMissingIsNotFatal(t *testing.T) {
	reg := newFakeRegistry(
		f("present", "1.0.0", dep("absent", "^1.0.0")),
	)
	root := f("root", "1.0.0", dep("present", "*"))

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"present@1.0.0"}, result.Refs())

	require.Len(t, result.Missing, 1)
	assert.Equal(t, "absent", result.Missing[0].Name)
	assert.Equal(t, "present", result.Missing[0].Parent)
	assert.ErrorIs(t, result.Missing[0].Reason, oerrors.ErrNotFound)
}

func TestResolveCyclicGraphTerminates(t *testing.T) {
	reg := newFakeRegistry(
		f("a", "1.0.0", dep("b", "*")),
		f("b", "1.0.0", dep("a", "*")),
	)
	root := f("root", "1.0.0", dep("a", "*"))

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@1.0.0", "b@1.0.0"}, result.Refs())
}

func TestResolveDevDependenciesRootOnly(t *testing.T) {
	reg := newFakeRegistry(
		f("tool", "1.0.0"),
		f("lib", "1.0.0"),
	)
	root := f("root", "1.0.0", dep("lib", "*"))
	root.DevDependencies = []formula.Dependency{dep("tool", "*")}

	result, err := New(reg).Resolve(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib@1.0.0"}, result.Refs())

	result, err = New(reg).Resolve(context.Background(), root, Options{IncludeDev: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lib@1.0.0", "tool@1.0.0"}, result.Refs())
}

func TestResolveRefIncludesNamed(t *testing.T) {
	reg := newFakeRegistry(
		f("app", "1.0.0", dep("lib", "*")),
		f("lib", "2.0.0"),
	)

	result, err := New(reg).ResolveRef(context.Background(), "app", "^1.0.0", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib@2.0.0", "app@1.0.0"}, result.Refs())
}

func TestResolveInvalidRange(t *testing.T) {
	reg := newFakeRegistry(f("a", "1.0.0"))
	root := f("root", "1.0.0", dep("a", "^^nope"))

	_, err := New(reg).Resolve(context.Background(), root, Options{})
	assert.ErrorIs(t, err, oerrors.ErrInvalidInput)
}

func TestResolveCancelled(t *testing.T) {
	reg := newFakeRegistry(f("a", "1.0.0"))
	root := f("root", "1.0.0", dep("a", "*"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(reg).Resolve(ctx, root, Options{})
	assert.ErrorIs(t, err, oerrors.ErrCancelled)
}
